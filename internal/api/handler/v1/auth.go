package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/regaloya/regaloya-api/internal/api/handler/v1/request"
	"github.com/regaloya/regaloya-api/internal/api/handler/v1/response"
	"github.com/regaloya/regaloya-api/internal/config"
	"github.com/regaloya/regaloya-api/internal/domain"
	"github.com/regaloya/regaloya-api/internal/service"
)

type AuthService interface {
	Signup(ctx context.Context, user domain.User) (domain.User, error)
	Login(ctx context.Context, username, password string) (domain.User, error)
	OpenSession(ctx context.Context, user domain.User, userAgent string) (string, time.Time, error)
	Logout(ctx context.Context, token string) error
}

type AuthHandler struct {
	conf *config.SessionConfig
	svc  AuthService
}

func NewAuthHandler(conf *config.SessionConfig, svc AuthService) *AuthHandler {
	return &AuthHandler{
		conf: conf,
		svc:  svc,
	}
}

// HandleRegister godoc
// @Summary      Register a new user
// @Description  Creates the account and logs it in with a session cookie.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request   body      request.RegisterRequest true "request body"
// @Success      201      {object}   response.AuthResponse
// @Failure      400      {object}   response.Err
// @Failure      429      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /auth/register [post]
func (h *AuthHandler) HandleRegister(ctx *gin.Context) {
	var req request.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	user, err := h.svc.Signup(ctx.Request.Context(), domain.User{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrUsernameExists) {
			response.RenderErr(ctx, response.ErrBadRequest(validation.Errors{"username": service.ErrUsernameExists}))
			return
		}

		err = fmt.Errorf("v1.HandleRegister -> h.svc.Signup -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	if respErr := h.startSession(ctx, user); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	ctx.JSON(http.StatusCreated, response.AuthResponse{User: user})
}

// HandleLogin godoc
// @Summary      Login a user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request   body      request.LoginRequest true "request body"
// @Success      200      {object}   response.AuthResponse
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      429      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /auth/login [post]
func (h *AuthHandler) HandleLogin(ctx *gin.Context) {
	req := request.LoginRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	user, err := h.svc.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrWrongPassword) {
			response.RenderErr(ctx, response.ErrWrongCredentials(err))
			return
		}

		err = fmt.Errorf("v1.HandleLogin -> h.svc.Login -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	if respErr := h.startSession(ctx, user); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	ctx.JSON(http.StatusOK, response.AuthResponse{User: user})
}

// HandleLogout godoc
// @Summary      Logout the current session
// @Tags         auth
// @Success      204
// @Failure      401      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /auth/logout [post]
// @Security     SessionCookie
func (h *AuthHandler) HandleLogout(ctx *gin.Context) {
	token, _ := ctx.Cookie(h.conf.CookieName)

	if err := h.svc.Logout(ctx.Request.Context(), token); err != nil {
		err = fmt.Errorf("v1.HandleLogout -> h.svc.Logout -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	h.setCookie(ctx, "", -1)
	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) startSession(ctx *gin.Context, user domain.User) *response.Err {
	token, expiresAt, err := h.svc.OpenSession(ctx.Request.Context(), user, ctx.Request.UserAgent())
	if err != nil {
		err = fmt.Errorf("v1.startSession -> h.svc.OpenSession -> %w", err)
		return response.ErrInternalServerError(err)
	}

	h.setCookie(ctx, token, int(time.Until(expiresAt).Seconds()))

	return nil
}

func (h *AuthHandler) setCookie(ctx *gin.Context, value string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(h.conf.CookieName, value, maxAge, "/", "", h.conf.Secure, true)
}
