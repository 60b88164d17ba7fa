package v1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/regaloya/regaloya-api/internal/api/handler/v1/response"
	"github.com/regaloya/regaloya-api/internal/service"
)

const (
	uploadFormField = "file"
	// Room for multipart headers around the file itself.
	multipartOverhead = 64 << 10
)

var errMissingFile = errors.New("is required")

type UploadService interface {
	UploadImage(ctx context.Context, userID uint, data []byte) (string, error)
	MaxBytes() int64
}

type UploadHandler struct {
	svc  UploadService
	uSvc UserService
}

func NewUploadHandler(svc UploadService, uSvc UserService) *UploadHandler {
	return &UploadHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleUploadImage godoc
// @Summary      Upload a project image
// @Description  Accepts jpeg, png, gif or webp images and returns the URL they are served from.
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Image"
// @Success      201  {object}  response.UploadResponse
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      502  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /uploads [post]
// @Security     SessionCookie
func (h *UploadHandler) HandleUploadImage(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	maxBytes := h.svc.MaxBytes()
	if maxBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBytes+multipartOverhead)
	}

	header, err := ctx.FormFile(uploadFormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.RenderErr(ctx, fileErr(service.ErrImageTooLarge))
			return
		}

		response.RenderErr(ctx, fileErr(errMissingFile))
		return
	}
	if maxBytes > 0 && header.Size > maxBytes {
		response.RenderErr(ctx, fileErr(service.ErrImageTooLarge))
		return
	}

	file, err := header.Open()
	if err != nil {
		err = fmt.Errorf("v1.HandleUploadImage -> header.Open -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		err = fmt.Errorf("v1.HandleUploadImage -> io.ReadAll -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	url, err := h.svc.UploadImage(ctx.Request.Context(), user.ID, data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyUpload),
			errors.Is(err, service.ErrImageTooLarge),
			errors.Is(err, service.ErrUnsupportedImage):
			response.RenderErr(ctx, fileErr(err))
		case errors.Is(err, service.ErrUploadRejected):
			response.RenderErr(ctx, response.ErrBadGateway(err))
		default:
			err = fmt.Errorf("v1.HandleUploadImage -> h.svc.UploadImage -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusCreated, response.UploadResponse{URL: url})
}

func fileErr(err error) *response.Err {
	return response.ErrBadRequest(validation.Errors{uploadFormField: err})
}
