package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sonora/config"
	"sonora/handlers"
	"sonora/middleware"
	"sonora/services"
	"sonora/types"
	"sonora/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve [files...]",
	Short: "Start the command server for the player UI",
	Long: `Start the command server. If another instance already listens on the
configured address, the files are handed to it and this process exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cwd, _ := os.Getwd()
		payload := types.InstancePayload{
			Args: append([]string{os.Args[0]}, args...),
			Cwd:  cwd,
		}
		return StartWebServer(ctx, cfg, logger, payload)
	},
}

// Server bundles the services behind the command surface
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	hub       websocket.Hub
	scope     *services.Scope
	extractor *services.Extractor
	library   *services.LibraryService
	jobQueue  services.JobQueue
	fetcher   services.TextFetcher
	updater   services.UpdateChecker
	instance  *handlers.InstanceHandler
}

// NewServer wires the services from cfg. Call Start before serving.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	hub := websocket.NewHub(logger.Named("ws"))
	scope := services.NewScope()

	extractor := services.NewExtractor(cfg.Locale,
		services.WithLegacyCharset(cfg.LegacyCharset),
		services.WithLogger(logger.Named("metadata")))
	library := services.NewLibraryService(extractor, cfg.Library.Extensions, cfg.Library.ScanWorkers, logger.Named("library"))

	return &Server{
		cfg:       cfg,
		logger:    logger,
		hub:       hub,
		scope:     scope,
		extractor: extractor,
		library:   library,
		jobQueue:  services.NewJobQueue(1, library, scope, hub, logger.Named("jobs")),
		fetcher:   services.NewFetcher(cfg.HTTP.Timeout, logger.Named("fetch")),
		updater:   services.NewUpdater(cfg.Updater.Endpoint, config.Version, cfg.Updater.Timeout, logger.Named("updater")),
		instance:  handlers.NewInstanceHandler(scope, hub, logger.Named("instance")),
	}
}

// Start runs the hub and the scan workers and restores the library roots
func (s *Server) Start() {
	go s.hub.Run()
	s.jobQueue.Start()

	settings, err := config.LoadSettings(s.cfg.SettingsFile)
	if err != nil {
		s.logger.Warn("failed to load settings", zap.String("path", s.cfg.SettingsFile), zap.Error(err))
		return
	}
	s.scope.SetRoots(settings.LibraryDirs)
}

// Stop stops the scan workers
func (s *Server) Stop() {
	s.jobQueue.Stop()
}

// Router builds the gin engine with all routes
func (s *Server) Router() *gin.Engine {
	// numbers in req_body keep their literal form when forwarded as query values
	binding.EnableDecoderUseNumber = true

	r := gin.New()

	r.Use(middleware.Logging(s.logger.Named("http")))
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.CORS(s.cfg.Server.CORSOrigins))
	r.Use(middleware.Security())

	setupRoutes(r,
		handlers.NewMetadataHandler(s.extractor, s.scope, s.logger.Named("metadata")),
		handlers.NewProxyHandler(s.fetcher, s.logger.Named("fetch")),
		handlers.NewAppHandler(s.updater, s.logger.Named("updater")),
		s.instance,
		handlers.NewFileHandler(s.scope, s.library, s.logger.Named("files")),
		handlers.NewScanHandler(s.jobQueue, s.hub, s.cfg.Server.CORSOrigins, s.logger.Named("ws")),
		handlers.NewHealthHandler(),
		handlers.NewSettingsHandler(s.cfg.SettingsFile, s.scope, s.logger.Named("settings")),
	)
	return r
}

// StartWebServer serves until ctx is done. If the address is held by a
// running instance, payload is forwarded to it and nil is returned.
func StartWebServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, payload types.InstancePayload) error {
	if cfg.Dev {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := cfg.Addr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		if !errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}

		client := services.NewInstanceClient(addr, config.AppName)
		if ferr := client.Forward(ctx, payload); ferr != nil {
			return fmt.Errorf("address %s is in use: %w", addr, ferr)
		}
		logger.Info("handed over to running instance", zap.String("addr", addr))
		return nil
	}

	s := NewServer(cfg, logger)
	s.Start()
	defer s.Stop()

	s.instance.Allow(payload)

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sonora server starting", zap.String("addr", addr), zap.String("version", config.Version))
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupRoutes configures all the HTTP routes
func setupRoutes(r *gin.Engine,
	metadataHandler *handlers.MetadataHandler,
	proxyHandler *handlers.ProxyHandler,
	appHandler *handlers.AppHandler,
	instanceHandler *handlers.InstanceHandler,
	fileHandler *handlers.FileHandler,
	scanHandler *handlers.ScanHandler,
	healthHandler *handlers.HealthHandler,
	settingsHandler *handlers.SettingsHandler,
) {
	// Health check endpoint, also checked by a second instance
	r.GET("/health", healthHandler.HealthCheck)

	apiGroup := r.Group("/api")
	{
		// Commands invoked by the UI
		commands := apiGroup.Group("/commands")
		{
			commands.POST("/get_audio_metadata", metadataHandler.GetAudioMetadata)
			commands.POST("/http_get_text", proxyHandler.HTTPGetText)
			commands.POST("/http_post_text", proxyHandler.HTTPPostText)
			commands.GET("/get_app_info", appHandler.GetAppInfo)
			commands.GET("/check_for_updates", appHandler.CheckForUpdates)
		}

		apiGroup.POST("/instance/activate", instanceHandler.Activate)

		apiGroup.GET("/files/stream", fileHandler.StreamFile)

		// Library scans
		scanGroup := apiGroup.Group("/library/scan")
		{
			scanGroup.POST("", scanHandler.QueueScan)
			scanGroup.GET("", scanHandler.GetAllJobs)
			scanGroup.GET("/:jobId", scanHandler.GetJob)
			scanGroup.DELETE("/:jobId", scanHandler.CancelJob)
		}

		// WebSocket endpoints for progress and application events
		wsGroup := apiGroup.Group("/ws")
		{
			wsGroup.GET("/events", scanHandler.HandleEventSocket)
			wsGroup.GET("/scan", scanHandler.HandleAllSocket)
			wsGroup.GET("/scan/:jobId", scanHandler.HandleJobSocket)
		}

		apiGroup.GET("/settings", settingsHandler.GetSettings)
		apiGroup.POST("/settings", settingsHandler.UpdateSettings)
	}
}
