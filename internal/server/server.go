package server

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"freshops/api/internal/config"
	"freshops/api/internal/handler"
	"freshops/api/internal/middleware"
	"freshops/api/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// CheckerInterface interface for background checkers
type CheckerInterface interface {
	Start()
	Stop()
}

// Server represents the HTTP server
type Server struct {
	router          *gin.Engine
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	nats            *nats.Conn
	attachmentStore *service.AttachmentStore
	wsHub           *handler.WSHub
	wsHandler       *handler.WSHandler
	delayedChecker  CheckerInterface
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn, attachmentStore *service.AttachmentStore) *Server {
	return &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		nats:            natsConn,
		attachmentStore: attachmentStore,
	}
}

// Setup initializes routes and handlers
func (s *Server) Setup() {
	// Initialize WebSocket hub first
	s.wsHub = handler.NewWSHub(s.nats)
	s.wsHandler = handler.NewWSHandler(s.wsHub)

	// Initialize services
	authService := service.NewAuthService(s.db)
	fleetService := service.NewFleetService(s.db)
	activityService := service.NewActivityService(s.db, s.redis)
	maintenanceService := service.NewMaintenanceService(s.db)
	optimizerClient := service.NewOptimizerClient(s.config.OptimizerURL, s.config.OptimizerTimeout)
	plannerService := service.NewPlannerService(s.db, s.nats, optimizerClient)
	boardService := service.NewBoardService(s.db, s.nats)
	reportService := service.NewReportService(s.db)
	webhookService := service.NewWebhookService(s.db)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, s.config)
	vehicleHandler := handler.NewVehicleHandler(fleetService)
	activityHandler := handler.NewActivityHandler(activityService)
	maintenanceHandler := handler.NewMaintenanceHandler(maintenanceService, s.attachmentStore)
	plannerHandler := handler.NewPlannerHandler(plannerService)
	boardHandler := handler.NewBoardHandler(boardService)
	reportHandler := handler.NewReportHandler(reportService)
	auditHandler := handler.NewAuditHandler(s.db)
	webhookHandler := handler.NewWebhookHandler(webhookService)

	// Start WebSocket hub in background
	go s.wsHub.Run()
	log.Println("[Server] WebSocket hub started")

	// Setup Gin router
	s.router = gin.Default()

	// CORS middleware
	s.router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Swagger UI
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public routes
	s.router.GET("/health", s.handleHealth)

	limiter := middleware.NewRedisRateLimiter(s.redis)
	loginRoute := s.router.Group("")
	if s.config.RateLimit.Enabled {
		loginRoute.Use(middleware.RateLimit(limiter, &s.config.RateLimit.Login))
	}
	loginRoute.POST("/api/v1/auth/login", authHandler.Login)

	// WebSocket routes
	s.router.GET("/ws/board", s.wsHandler.HandleBoard)
	s.router.GET("/ws/stats", s.wsHandler.GetStats)

	// Protected routes
	api := s.router.Group("/api/v1")
	api.Use(authHandler.AuthMiddleware())
	{
		// Auth
		api.GET("/auth/me", authHandler.GetMe)

		// Fleet
		vehicleHandler.RegisterRoutes(api)
		activityHandler.RegisterRoutes(api)

		// Maintenance
		maintenanceHandler.RegisterRoutes(api)

		// Orders and picking board
		boardHandler.RegisterRoutes(api)

		// Route planning, with its own rate limit on the optimizer call
		if s.config.RateLimit.Enabled {
			plannerHandler.RegisterRoutes(api, middleware.RateLimit(limiter, &s.config.RateLimit.Plan))
		} else {
			plannerHandler.RegisterRoutes(api)
		}

		// Reports
		reportHandler.RegisterRoutes(api)

		// Audit and webhook management, admin and manager only
		admin := api.Group("")
		admin.Use(authHandler.RequireRole("admin", "manager"))
		auditHandler.RegisterRoutes(admin)
		webhookHandler.RegisterRoutes(admin)
	}
}

// handleHealth reports process health and dependency reachability
func (s *Server) handleHealth(c *gin.Context) {
	deps := gin.H{}

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		deps["database"] = "down"
	} else {
		deps["database"] = "up"
	}

	if err := s.redis.Ping(c.Request.Context()).Err(); err != nil {
		deps["redis"] = "down"
	} else {
		deps["redis"] = "up"
	}

	if s.nats != nil && s.nats.IsConnected() {
		deps["nats"] = "up"
	} else {
		deps["nats"] = "down"
	}

	status := "ok"
	code := 200
	for _, v := range deps {
		if v == "down" {
			status = "degraded"
			code = 503
			break
		}
	}
	c.JSON(code, gin.H{"status": status, "dependencies": deps})
}

// SetDelayedChecker sets the picking delay checker
func (s *Server) SetDelayedChecker(checker CheckerInterface) {
	s.delayedChecker = checker
}

// Run starts the HTTP server
func (s *Server) Run(addr string) error {
	log.Printf("[Server] HTTP server listening on %s", addr)
	return s.router.Run(addr)
}

// GetRouter returns the gin router for testing
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() {
	if s.wsHub != nil {
		s.wsHub.Stop()
		log.Println("[Server] WebSocket hub stopped")
	}
	if s.delayedChecker != nil {
		s.delayedChecker.Stop()
		log.Println("[Server] Delayed order checker stopped")
	}
}
