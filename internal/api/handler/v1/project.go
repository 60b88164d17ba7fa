package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/regaloya/regaloya-api/internal/api/handler/v1/request"
	"github.com/regaloya/regaloya-api/internal/api/handler/v1/response"
	"github.com/regaloya/regaloya-api/internal/domain"
	"github.com/regaloya/regaloya-api/internal/service"
)

type ProjectService interface {
	ListProjects(ctx context.Context, user domain.User) ([]domain.ProjectSummary, error)
	GetProject(ctx context.Context, id uint, user domain.User) (domain.ProjectDetail, error)
	CreateProject(ctx context.Context, project domain.Project, user domain.User) (domain.Project, error)
	UpdateProject(ctx context.Context, project domain.Project, user domain.User) (domain.Project, error)
	DeleteProject(ctx context.Context, id uint, user domain.User) error
	Contribute(ctx context.Context, contribution domain.Contribution, user domain.User) (domain.Contribution, domain.Project, error)
	GetSharedProject(ctx context.Context, id uint) (domain.SharedProject, error)
}

type ProjectHandler struct {
	svc        ProjectService
	uSvc       UserService
	uploadPath string
}

// NewProjectHandler builds the handler. uploadPath is the public path of
// locally stored uploads, empty when images live on the upload service.
func NewProjectHandler(svc ProjectService, uSvc UserService, uploadPath string) *ProjectHandler {
	return &ProjectHandler{
		svc:        svc,
		uSvc:       uSvc,
		uploadPath: uploadPath,
	}
}

// HandleListProjects godoc
// @Summary      List projects of the user
// @Description  Projects the user created or contributed to, newest first.
// @Tags         projects
// @Produce      json
// @Success      200  {array}   domain.ProjectSummary
// @Failure      401  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /projects [get]
// @Security     SessionCookie
func (h *ProjectHandler) HandleListProjects(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	projects, err := h.svc.ListProjects(ctx.Request.Context(), user)
	if err != nil {
		err = fmt.Errorf("v1.HandleListProjects -> h.svc.ListProjects -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, projects)
}

// HandleGetProject godoc
// @Summary      Get a project with its contributions and statistics
// @Tags         projects
// @Produce      json
// @Param        projectID  path      int  true  "Project ID"
// @Success      200  {object}  domain.ProjectDetail
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /projects/{projectID} [get]
// @Security     SessionCookie
func (h *ProjectHandler) HandleGetProject(ctx *gin.Context) {
	projectID, respErr := parseProjectID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	detail, err := h.svc.GetProject(ctx.Request.Context(), projectID, user)
	if err != nil {
		response.RenderErr(ctx, projectErr(err, projectID, "v1.HandleGetProject -> h.svc.GetProject"))
		return
	}

	ctx.JSON(http.StatusOK, detail)
}

// HandleCreateProject godoc
// @Summary      Create a project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        request  body      request.ProjectRequest  true  "Project details"
// @Success      201  {object}  domain.Project
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /projects [post]
// @Security     SessionCookie
func (h *ProjectHandler) HandleCreateProject(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.ProjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	req.UploadPath = h.uploadPath

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	project, err := h.svc.CreateProject(ctx.Request.Context(), req.ToDomain(), user)
	if err != nil {
		err = fmt.Errorf("v1.HandleCreateProject -> h.svc.CreateProject -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, project)
}

// HandleUpdateProject godoc
// @Summary      Update a project
// @Description  Only the creator may update a project. The running total is not editable.
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        projectID  path      int                     true  "Project ID"
// @Param        request    body      request.ProjectRequest  true  "Project details"
// @Success      200  {object}  domain.Project
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /projects/{projectID} [put]
// @Security     SessionCookie
func (h *ProjectHandler) HandleUpdateProject(ctx *gin.Context) {
	projectID, respErr := parseProjectID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.ProjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	req.UploadPath = h.uploadPath

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	project := req.ToDomain()
	project.ID = projectID

	updated, err := h.svc.UpdateProject(ctx.Request.Context(), project, user)
	if err != nil {
		response.RenderErr(ctx, projectErr(err, projectID, "v1.HandleUpdateProject -> h.svc.UpdateProject"))
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

// HandleDeleteProject godoc
// @Summary      Delete a project and its contributions
// @Tags         projects
// @Param        projectID  path  int  true  "Project ID"
// @Success      204
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /projects/{projectID} [delete]
// @Security     SessionCookie
func (h *ProjectHandler) HandleDeleteProject(ctx *gin.Context) {
	projectID, respErr := parseProjectID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if err := h.svc.DeleteProject(ctx.Request.Context(), projectID, user); err != nil {
		response.RenderErr(ctx, projectErr(err, projectID, "v1.HandleDeleteProject -> h.svc.DeleteProject"))
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleContribute godoc
// @Summary      Contribute to a project
// @Description  Records a pledge and adds its amount to the project's running total.
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        projectID  path      int                        true  "Project ID"
// @Param        request    body      request.ContributeRequest  true  "Contribution"
// @Success      201  {object}  response.ContributionResponse
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /projects/{projectID}/contributions [post]
// @Security     SessionCookie
func (h *ProjectHandler) HandleContribute(ctx *gin.Context) {
	projectID, respErr := parseProjectID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.ContributeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	contribution, project, err := h.svc.Contribute(ctx.Request.Context(), req.ToDomain(projectID), user)
	if err != nil {
		response.RenderErr(ctx, projectErr(err, projectID, "v1.HandleContribute -> h.svc.Contribute"))
		return
	}

	ctx.JSON(http.StatusCreated, response.ContributionResponse{
		Contribution: contribution,
		Project:      project,
	})
}

// HandleGetSharedProject godoc
// @Summary      Public view of a shared project
// @Description  Available without a session for projects marked public.
// @Tags         share
// @Produce      json
// @Param        projectID  path      int  true  "Project ID"
// @Success      200  {object}  domain.SharedProject
// @Failure      400  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /share/{projectID} [get]
func (h *ProjectHandler) HandleGetSharedProject(ctx *gin.Context) {
	projectID, respErr := parseProjectID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	shared, err := h.svc.GetSharedProject(ctx.Request.Context(), projectID)
	if err != nil {
		response.RenderErr(ctx, projectErr(err, projectID, "v1.HandleGetSharedProject -> h.svc.GetSharedProject"))
		return
	}

	ctx.JSON(http.StatusOK, shared)
}

func parseProjectID(ctx *gin.Context) (uint, *response.Err) {
	raw := ctx.Param("projectID")

	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, response.ErrBadRequest(fmt.Errorf("invalid project id %q", raw))
	}

	return uint(id), nil
}

// projectErr maps project service errors onto responses. trace prefixes
// unexpected errors.
func projectErr(err error, projectID uint, trace string) *response.Err {
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		return response.ErrNotFound("project", "id", projectID)
	case errors.Is(err, service.ErrNotProjectOwner), errors.Is(err, service.ErrNoProjectAccess):
		return response.ErrPermissionDenied(err)
	default:
		return response.ErrInternalServerError(fmt.Errorf("%s -> %w", trace, err))
	}
}
