package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/regaloya/regaloya-api/internal/api/handler/v1/response"
	"github.com/regaloya/regaloya-api/internal/api/middleware"
	"github.com/regaloya/regaloya-api/internal/domain"
	"github.com/regaloya/regaloya-api/internal/service"
)

var errNoUserInContext = errors.New("no authenticated user in request context")

type UserService interface {
	GetUser(ctx context.Context, id uint) (domain.User, error)
}

type UserHandler struct {
	svc UserService
}

func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{
		svc: svc,
	}
}

// HandleGetCurrentUser godoc
// @Summary      Get the logged in user
// @Tags         auth
// @Produce      json
// @Success      200      {object}   response.AuthResponse
// @Failure      401      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /auth/me [get]
// @Security     SessionCookie
func (h *UserHandler) HandleGetCurrentUser(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.svc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	ctx.JSON(http.StatusOK, response.AuthResponse{User: user})
}

// getUserFromContext loads the user whose session was verified by the
// authentication middleware.
func getUserFromContext(ctx *gin.Context, uSvc UserService) (domain.User, *response.Err) {
	userID := ctx.GetUint(middleware.ContextUserIDKey)
	if userID == 0 {
		return domain.User{}, response.ErrUnauthorized(errNoUserInContext)
	}

	user, err := uSvc.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return domain.User{}, response.ErrUnauthorized(err)
		}

		err = fmt.Errorf("getUserFromContext -> uSvc.GetUser -> %w", err)
		return domain.User{}, response.ErrInternalServerError(err)
	}

	return user, nil
}
