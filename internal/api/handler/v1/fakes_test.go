package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/regaloya/regaloya-api/internal/api/middleware"
	"github.com/regaloya/regaloya-api/internal/domain"
	"github.com/regaloya/regaloya-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUserService struct {
	users map[uint]domain.User
	err   error
}

func newFakeUserService(users ...domain.User) *fakeUserService {
	s := &fakeUserService{users: make(map[uint]domain.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserService) GetUser(_ context.Context, id uint) (domain.User, error) {
	if s.err != nil {
		return domain.User{}, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, service.ErrUserNotFound
	}
	return u, nil
}

type fakeAuthService struct {
	user      domain.User
	signupErr error
	loginErr  error
	token     string
	expiresAt time.Time

	signedUp   []domain.User
	loggedOut  []string
	openedFor  []domain.User
	userAgents []string
}

func (s *fakeAuthService) Signup(_ context.Context, user domain.User) (domain.User, error) {
	s.signedUp = append(s.signedUp, user)
	if s.signupErr != nil {
		return domain.User{}, s.signupErr
	}
	user.ID = s.user.ID
	user.Password = "hashed"
	return user, nil
}

func (s *fakeAuthService) Login(_ context.Context, username, _ string) (domain.User, error) {
	if s.loginErr != nil {
		return domain.User{}, s.loginErr
	}
	u := s.user
	u.Username = username
	return u, nil
}

func (s *fakeAuthService) OpenSession(_ context.Context, user domain.User, userAgent string) (string, time.Time, error) {
	s.openedFor = append(s.openedFor, user)
	s.userAgents = append(s.userAgents, userAgent)
	return s.token, s.expiresAt, nil
}

func (s *fakeAuthService) Logout(_ context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	return nil
}

// fakeProjectService returns canned results and records what it was asked.
type fakeProjectService struct {
	err error

	summaries    []domain.ProjectSummary
	detail       domain.ProjectDetail
	shared       domain.SharedProject
	contribution domain.Contribution

	created       []domain.Project
	updated       []domain.Project
	deleted       []uint
	contributions []domain.Contribution
	viewed        []uint
}

func (s *fakeProjectService) ListProjects(_ context.Context, _ domain.User) ([]domain.ProjectSummary, error) {
	return s.summaries, s.err
}

func (s *fakeProjectService) GetProject(_ context.Context, id uint, _ domain.User) (domain.ProjectDetail, error) {
	s.viewed = append(s.viewed, id)
	if s.err != nil {
		return domain.ProjectDetail{}, s.err
	}
	return s.detail, nil
}

func (s *fakeProjectService) CreateProject(_ context.Context, project domain.Project, user domain.User) (domain.Project, error) {
	s.created = append(s.created, project)
	if s.err != nil {
		return domain.Project{}, s.err
	}
	project.ID = 1
	project.CreatorID = user.ID
	return project, nil
}

func (s *fakeProjectService) UpdateProject(_ context.Context, project domain.Project, _ domain.User) (domain.Project, error) {
	s.updated = append(s.updated, project)
	if s.err != nil {
		return domain.Project{}, s.err
	}
	return project, nil
}

func (s *fakeProjectService) DeleteProject(_ context.Context, id uint, _ domain.User) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func (s *fakeProjectService) Contribute(_ context.Context, c domain.Contribution, user domain.User) (domain.Contribution, domain.Project, error) {
	s.contributions = append(s.contributions, c)
	if s.err != nil {
		return domain.Contribution{}, domain.Project{}, s.err
	}
	c.ID = 1
	c.ContributorID = &user.ID
	return c, domain.Project{ID: c.ProjectID, CurrentAmount: c.Amount}, nil
}

func (s *fakeProjectService) GetSharedProject(_ context.Context, id uint) (domain.SharedProject, error) {
	s.viewed = append(s.viewed, id)
	if s.err != nil {
		return domain.SharedProject{}, s.err
	}
	return s.shared, nil
}

func (s *fakeProjectService) CanView(_ context.Context, id uint, _ domain.User) error {
	s.viewed = append(s.viewed, id)
	return s.err
}

// asUser stands in for the session middleware.
func asUser(id uint) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if id != 0 {
			ctx.Set(middleware.ContextUserIDKey, id)
		}
		ctx.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

type errBody struct {
	Status string            `json:"status"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) errBody {
	t.Helper()
	var body errBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
