package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/regaloya/regaloya-api/internal/domain"
	"github.com/regaloya/regaloya-api/internal/repository"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uint]domain.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uint]domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return domain.User{}, repository.ErrUsernameExists
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uint) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, repository.ErrUserNotFound
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]domain.Session{}}
}

func (r *fakeSessionRepo) Create(_ context.Context, s domain.Session) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return s, nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id string) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, repository.ErrSessionNotFound
	}
	return s, nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context, userID uint, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.UserID == userID && s.Expired(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// fakeProjectRepo mirrors the access and ledger rules of the SQL layer in
// memory.
type fakeProjectRepo struct {
	mu            sync.Mutex
	users         *fakeUserRepo
	projects      map[uint]domain.Project
	contributions []domain.Contribution
	nextID        uint
	clock         time.Time
}

func newFakeProjectRepo(users *fakeUserRepo) *fakeProjectRepo {
	return &fakeProjectRepo{
		users:    users,
		projects: map[uint]domain.Project{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *fakeProjectRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Minute)
	return r.clock
}

func (r *fakeProjectRepo) Create(_ context.Context, p domain.Project) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = r.tick()
	r.projects[p.ID] = p
	return p, nil
}

func (r *fakeProjectRepo) FindByID(ctx context.Context, id uint) (domain.Project, domain.User, error) {
	r.mu.Lock()
	p, ok := r.projects[id]
	r.mu.Unlock()
	if !ok {
		return domain.Project{}, domain.User{}, repository.ErrProjectNotFound
	}
	creator, _ := r.users.FindByID(ctx, p.CreatorID)
	return p, creator, nil
}

func (r *fakeProjectRepo) Update(_ context.Context, p domain.Project) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.projects[p.ID]
	if !ok {
		return domain.Project{}, repository.ErrProjectNotFound
	}
	p.CurrentAmount = old.CurrentAmount
	p.CreatedAt = old.CreatedAt
	r.projects[p.ID] = p
	return p, nil
}

func (r *fakeProjectRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return repository.ErrProjectNotFound
	}
	delete(r.projects, id)
	kept := r.contributions[:0]
	for _, c := range r.contributions {
		if c.ProjectID != id {
			kept = append(kept, c)
		}
	}
	r.contributions = kept
	return nil
}

func (r *fakeProjectRepo) related(c domain.Contribution, user domain.User) bool {
	return c.ContributorName == user.Username || (c.ContributorID != nil && *c.ContributorID == user.ID)
}

func (r *fakeProjectRepo) FindAccessible(_ context.Context, user domain.User) ([]domain.ProjectSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ProjectSummary
	for _, p := range r.projects {
		var count int64
		contributed := false
		for _, c := range r.contributions {
			if c.ProjectID != p.ID {
				continue
			}
			count++
			if r.related(c, user) {
				contributed = true
			}
		}
		owner := p.CreatorID == user.ID
		if owner || contributed {
			out = append(out, domain.ProjectSummary{Project: p, ContributionCount: count, IsOwner: owner})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeProjectRepo) IsContributor(_ context.Context, projectID uint, user domain.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contributions {
		if c.ProjectID == projectID && r.related(c, user) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeProjectRepo) FindContributions(_ context.Context, projectID uint) ([]domain.Contribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Contribution
	for i := len(r.contributions) - 1; i >= 0; i-- {
		if r.contributions[i].ProjectID == projectID {
			out = append(out, r.contributions[i])
		}
	}
	return out, nil
}

func (r *fakeProjectRepo) CountContributions(ctx context.Context, projectID uint) (int64, error) {
	found, _ := r.FindContributions(ctx, projectID)
	return int64(len(found)), nil
}

func (r *fakeProjectRepo) AddContribution(_ context.Context, c domain.Contribution) (domain.Contribution, domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[c.ProjectID]
	if !ok {
		return domain.Contribution{}, domain.Project{}, repository.ErrProjectNotFound
	}
	p.CurrentAmount = p.CurrentAmount.Add(c.Amount)
	r.projects[p.ID] = p
	c.ID = uint(len(r.contributions) + 1)
	c.CreatedAt = r.tick()
	r.contributions = append(r.contributions, c)
	return c, p, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Contribution
}

func (p *recordingPublisher) PublishContribution(_ domain.Project, c domain.Contribution) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, c)
}
