package main

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"sharecast/internal/config"
	"sharecast/internal/logger"
	"sharecast/internal/server"
)

func main() {
	cfg, err := config.Load(config.Overrides{})
	if err != nil {
		logger.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	if cfg.Debug {
		logger.SetLevel(logger.LevelDebug)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Infof("Opening database: %s", cfg.DatabasePath)
	store, err := server.OpenSQLStore(cfg.DatabasePath)
	if err != nil {
		logger.Errorf("Failed to open database: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	hub := server.NewHub(store)
	defer hub.Close()

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.AllowedOrigins,
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"*"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/share", hub.HandleShare)

	logger.Infof("Relay server listening on %s (public URL %s)", cfg.Addr, cfg.PublicURL)
	if err := router.Run(cfg.Addr); err != nil {
		logger.Errorf("Server exited: %v", err)
		os.Exit(1)
	}
}
