package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"core/internal/catalog"
	"core/internal/config"
	"core/internal/handler"
	"core/internal/notify"
	"core/internal/repository"
	"core/internal/service"
	"core/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Print version info
	log.Printf("Student Housing Voice Assistant")
	log.Printf("Version: %s", Version)
	log.Printf("Build Time: %s", BuildTime)
	log.Printf("Git Commit: %s", GitCommit)
	log.Println("")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Initialize OpenAI client
	var openaiClient *service.OpenAIClient
	if cfg.OpenAI.Enabled {
		openaiClient = service.NewOpenAIClient(&cfg.OpenAI)
		log.Printf("✅ OpenAI client initialized")
		log.Printf("   - API Base: %s", cfg.OpenAI.APIBase)
		log.Printf("   - Chat model: %s", cfg.OpenAI.ChatModel)
		log.Printf("   - Timeout: %ds", cfg.OpenAI.Timeout)
	} else {
		log.Println("⚠️  OpenAI is disabled - every call will conclude with fallback preferences")
		log.Println("   Set OPENAI_API_KEY environment variable to enable preference extraction")
	}

	// Initialize SMS notifier
	var notifier notify.Notifier
	if cfg.Twilio.Enabled {
		notifier = notify.NewTwilioNotifier(&cfg.Twilio)
		log.Printf("✅ Twilio SMS notifier initialized (from %s)", cfg.Twilio.FromNumber)
	} else {
		log.Println("⚠️  Twilio SMS is disabled - callers will not receive text summaries")
		log.Println("   Set TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER to enable")
	}

	// Initialize optional call-log database
	var callLog *repository.CallLogRepository
	if cfg.PostgreSQL.Enabled {
		callLog, err = repository.NewCallLogRepository(
			cfg.PostgreSQL.DSN,
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			log.Fatalf("Failed to connect to call-log database: %v", err)
		}
		defer callLog.Close()
		log.Println("✅ Connected to call-log database")
	} else {
		log.Println("⚠️  Call logging is disabled - set DATABASE_URL to enable")
	}

	// Initialize services
	store := session.NewStore(service.Greeting)
	extractor := service.NewPreferenceExtractor(openaiClient)
	ranker := service.NewRanker()
	machine := service.NewDialogueMachine(
		store,
		extractor,
		ranker,
		notifier,
		callLog,
		catalog.All(),
		cfg.Dialogue.MaxTurns,
		cfg.Dialogue.TopMatches,
	)

	log.Printf("✅ Services initialized (%d listings, max %d turns)", catalog.Size(), cfg.Dialogue.MaxTurns)

	// Initialize handlers
	voiceHandler := handler.NewVoiceHandler(machine, store)
	statusHandler := handler.NewStatusHandler(store, callLog)

	// Setup Gin router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.AllowedOrigins}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":        "healthy",
			"service":       "housing-voice-assistant",
			"version":       Version,
			"live_sessions": store.Len(),
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Telephony webhooks
	router.POST("/voice", voiceHandler.Start)
	router.POST("/handle-intent", voiceHandler.HandleIntent)
	router.POST("/call-status", statusHandler.Callback)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("🚀 Starting server on %s", addr)
	log.Printf("📞 Point the Twilio voice webhook at http://<host>:%d/voice", cfg.Server.Port)

	go func() {
		if err := router.Run(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	log.Println("✅ Server stopped")
}
