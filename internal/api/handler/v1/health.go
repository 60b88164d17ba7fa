package v1

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/regaloya/regaloya-api/internal/api/handler/v1/response"
)

const pingTimeout = 2 * time.Second

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{
		db: db,
	}
}

// HandleHealth godoc
// @Summary      Health check
// @Description  Reports whether the API can reach its database.
// @Tags         health
// @Produce      json
// @Success      200  {object}  response.HealthResponse
// @Failure      503  {object}  response.Err
// @Router       /health [get]
func (h *HealthHandler) HandleHealth(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), pingTimeout)
	defer cancel()

	if err := h.db.PingContext(pingCtx); err != nil {
		err = fmt.Errorf("database is unreachable: %w", err)
		response.RenderErr(ctx, response.ErrServiceUnavailable(err))
		return
	}

	ctx.JSON(http.StatusOK, response.HealthResponse{
		Status:   "ok",
		Database: "ok",
	})
}

// HandleHealthcheck godoc
// @Summary      Liveness check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       / [get]
func HandleHealthcheck(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}
