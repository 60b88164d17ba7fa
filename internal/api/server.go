package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/regaloya/regaloya-api/docs"
	v1 "github.com/regaloya/regaloya-api/internal/api/handler/v1"
	"github.com/regaloya/regaloya-api/internal/api/middleware"
	"github.com/regaloya/regaloya-api/internal/config"
	"github.com/regaloya/regaloya-api/internal/domain"
	"github.com/regaloya/regaloya-api/internal/repository"
	"github.com/regaloya/regaloya-api/internal/repository/dao"
	"github.com/regaloya/regaloya-api/internal/service"
	"github.com/regaloya/regaloya-api/internal/storage"
)

const (
	basePath        = "/api/v1"
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine

	live *v1.LiveHandler
}

type handlers struct {
	auth    *v1.AuthHandler
	user    *v1.UserHandler
	project *v1.ProjectHandler
	upload  *v1.UploadHandler
	live    *v1.LiveHandler
	health  *v1.HealthHandler
}

func NewServer(conf *config.AppConfig, db *gorm.DB) (*Server, error) {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()
	if err := engine.SetTrustedProxies(conf.API.TrustedProxies); err != nil {
		return nil, fmt.Errorf("engine.SetTrustedProxies -> %w", err)
	}

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db.DB -> %w", err)
	}

	userRepo := repository.NewUserRepository(dao.NewUserDAO(db))
	sessionRepo := repository.NewSessionRepository(dao.NewSessionDAO(db))
	projectRepo := repository.NewProjectRepository(dao.NewProjectDAO(db))

	authSvc := service.NewAuthService(userRepo, sessionRepo, conf.Session)
	userSvc := service.NewUserService(userRepo)

	h := handlers{
		auth:   v1.NewAuthHandler(conf.Session, authSvc),
		user:   v1.NewUserHandler(userSvc),
		health: v1.NewHealthHandler(sqlDB),
	}

	uploadHandler, uploadPath, err := s.initUploadHandler(userSvc)
	if err != nil {
		return nil, err
	}
	h.upload = uploadHandler

	projectSvc := s.initProjectService(projectRepo, userSvc, &h)
	h.project = v1.NewProjectHandler(projectSvc, userSvc, uploadPath)
	s.live = h.live

	s.MountHandlers(h, middleware.NewAuthenticator(authSvc, conf.Session.CookieName))

	return s, nil
}

// initProjectService wires the live feed as the contribution publisher.
func (s *Server) initProjectService(repo service.ProjectRepository, userSvc v1.UserService, h *handlers) *service.ProjectService {
	var viewer projectViewer
	h.live = v1.NewLiveHandler(&viewer, userSvc, s.Config.API.AllowedCORSDomains)

	svc := service.NewProjectService(repo, h.live)
	viewer.svc = svc

	return svc
}

// initUploadHandler forwards uploads to the configured upload service, or
// keeps them on disk and serves them when there is none. The returned path
// is where local uploads are served, empty for the upload service.
func (s *Server) initUploadHandler(userSvc v1.UserService) (*v1.UploadHandler, string, error) {
	conf := s.Config.Upload

	var store service.ImageStore
	var publicPath string
	if conf.ServiceURL != "" {
		store = storage.NewRemoteStore(conf.ServiceURL, conf.APIKey, nil)
		zap.L().Info("storing uploads through the upload service", zap.String("url", conf.ServiceURL))
	} else {
		fileStore, err := storage.NewFileStore(conf.Dir, conf.PublicPath)
		if err != nil {
			return nil, "", fmt.Errorf("storage.NewFileStore -> %w", err)
		}
		publicPath = fileStore.PublicPath()
		s.Router.Static(publicPath, fileStore.BasePath())
		store = fileStore
		zap.L().Info("storing uploads on disk", zap.String("dir", fileStore.BasePath()))
	}

	svc := service.NewUploadService(store, conf.MaxBytes)

	return v1.NewUploadHandler(svc, userSvc), publicPath, nil
}

func (s *Server) MountMiddlewares() {
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.Logger())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(h handlers, authenticator *middleware.Authenticator) {
	limiter := middleware.NewRateLimiter(s.Config.API.RateLimitPerMinute, time.Minute)

	public := s.Router.Group(basePath)
	{
		public.POST("/auth/register", limiter.Limit(), h.auth.HandleRegister)
		public.POST("/auth/login", limiter.Limit(), h.auth.HandleLogin)
		public.GET("/share/:projectID", h.project.HandleGetSharedProject)
		public.GET("/health", h.health.HandleHealth)
	}

	private := s.Router.Group(basePath, authenticator.VerifySession())
	{
		private.POST("/auth/logout", h.auth.HandleLogout)
		private.GET("/auth/me", h.user.HandleGetCurrentUser)

		private.GET("/projects", h.project.HandleListProjects)
		private.POST("/projects", h.project.HandleCreateProject)
		private.GET("/projects/:projectID", h.project.HandleGetProject)
		private.PUT("/projects/:projectID", h.project.HandleUpdateProject)
		private.DELETE("/projects/:projectID", h.project.HandleDeleteProject)
		private.POST("/projects/:projectID/contributions", limiter.Limit(), h.project.HandleContribute)
		private.GET("/projects/:projectID/live", h.live.HandleLive)

		private.POST("/uploads", limiter.Limit(), h.upload.HandleUploadImage)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "RegaloYa API"
	docs.SwaggerInfo.Description = "Collaborative gift crowdfunding API."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}

// Run serves HTTP on addr until ctx is cancelled, then drains in-flight
// requests and disconnects live feed subscribers.
func (s *Server) Run(ctx context.Context, addr string) error {
	liveCtx, stopLive := context.WithCancel(context.Background())
	defer stopLive()
	go s.live.Run(liveCtx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("srv.ListenAndServe -> %w", err)
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	stopLive()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("srv.Shutdown -> %w", err)
	}

	return nil
}

// projectViewer breaks the construction cycle between the live feed, which
// checks read access, and the project service, which publishes to it.
type projectViewer struct {
	svc *service.ProjectService
}

func (v *projectViewer) CanView(ctx context.Context, id uint, user domain.User) error {
	return v.svc.CanView(ctx, id, user)
}
