package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fleetscale/fleetd/api/handlers"
	"github.com/fleetscale/fleetd/api/middleware"
	"github.com/fleetscale/fleetd/api/websocket"
	"github.com/fleetscale/fleetd/internal/auth"
	"github.com/fleetscale/fleetd/pkg/config"
	"github.com/fleetscale/fleetd/pkg/database"
	"github.com/fleetscale/fleetd/pkg/database/queries"
	"github.com/gin-gonic/gin"
)

type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	config       config.APIConfig
	wsConfig     config.WebSocketConfig
	db           *database.DB
	authService  *auth.Service
	wsHub        *websocket.Hub
	wsBridge     *websocket.EventBridge
	fleetManager handlers.FleetManager
}

func NewServer(cfg config.APIConfig, wsCfg config.WebSocketConfig, db *database.DB, fleetManager handlers.FleetManager) *Server {
	if cfg.JWTSecret == "" || cfg.JWTSecret == "change-me-in-production" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	authService := auth.NewService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTDuration)
	wsHub := websocket.NewHub(wsCfg)

	s := &Server{
		router:       router,
		config:       cfg,
		wsConfig:     wsCfg,
		db:           db,
		authService:  authService,
		wsHub:        wsHub,
		fleetManager: fleetManager,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	if fleetManager != nil {
		eventsChan := fleetManager.SubscribeAllEvents()
		s.wsBridge = websocket.NewEventBridge(wsHub, eventsChan)
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	s.router.Use(middleware.Trace())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.RequestSizeLimit(1 << 20))
}

func (s *Server) setupRoutes() {
	var decisionRepo *queries.DecisionRepository
	var elasticityRepo *queries.ElasticityRepository
	if s.db != nil {
		decisionRepo = queries.NewDecisionRepository(s.db.DB)
		elasticityRepo = queries.NewElasticityRepository(s.db.DB)
	}

	healthHandler := handlers.NewHealthHandler(s.db)
	authHandler := handlers.NewAuthHandler(s.authService, s.config.OperatorToken)
	fleetHandler := handlers.NewFleetHandler(s.fleetManager, decisionRepo, elasticityRepo, s.config.DefaultLimit, s.config.MaxLimit)

	// Public routes
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	// Auth routes
	s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)

	// WebSocket route
	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	// Protected routes
	protected := s.router.Group("/")
	protected.Use(middleware.JWTAuth(s.authService))
	{
		protected.GET("/fleets", fleetHandler.List)
		protected.GET("/fleets/:id/status", fleetHandler.GetStatus)
		protected.GET("/fleets/:id/elasticity", fleetHandler.GetElasticity)
		protected.GET("/fleets/:id/decisions", fleetHandler.GetDecisions)
		protected.GET("/fleets/:id/elasticity/history", fleetHandler.GetElasticityHistory)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	idleTimeout := s.config.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
