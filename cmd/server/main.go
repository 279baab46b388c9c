package main

import (
	"os"
	"time"

	"document-reconciliation-backend/internal/config"
	"document-reconciliation-backend/internal/logger"
	"document-reconciliation-backend/internal/repository"
	"document-reconciliation-backend/internal/routes"
	service "document-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	envErr := godotenv.Load()

	cfg, err := config.LoadOrEnv()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if envErr != nil {
		log.Info().Msg("no .env file found, relying on system env")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	reconService, err := service.NewService(
		repository.NewGormStore(db),
		cfg.Matching,
		service.WithLogger(log.With().Str("component", "assignment").Logger()),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build reconciliation service")
	}

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Actor-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, reconService, log)

	log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
	if err := r.Run(cfg.Server.Addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
