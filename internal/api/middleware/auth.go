package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/regaloya/regaloya-api/internal/api/handler/v1/response"
	"github.com/regaloya/regaloya-api/internal/domain"
	"github.com/regaloya/regaloya-api/internal/service"
)

const (
	ContextUserIDKey    = "userID"
	ContextSessionIDKey = "sessionID"
)

var errMissingSession = errors.New("missing session cookie")

type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Session, error)
}

type Authenticator struct {
	svc        SessionAuthenticator
	cookieName string
}

func NewAuthenticator(svc SessionAuthenticator, cookieName string) *Authenticator {
	return &Authenticator{
		svc:        svc,
		cookieName: cookieName,
	}
}

// VerifySession rejects the request with 401 unless it carries a cookie for
// a live session. On success the user and session ids are stored in the gin
// context.
func (a *Authenticator) VerifySession() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie(a.cookieName)
		if err != nil || token == "" {
			response.RenderErr(ctx, response.ErrUnauthorized(errMissingSession))
			return
		}

		session, err := a.svc.Authenticate(ctx.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrSessionInvalid) {
				response.RenderErr(ctx, response.ErrUnauthorized(err))
				return
			}

			err = fmt.Errorf("middleware.VerifySession -> a.svc.Authenticate -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
			return
		}

		ctx.Set(ContextUserIDKey, session.UserID)
		ctx.Set(ContextSessionIDKey, session.ID)
		ctx.Next()
	}
}
