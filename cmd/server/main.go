package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/clipscan/clipscan/internal/analysis"
	"github.com/clipscan/clipscan/internal/chatfeed"
	"github.com/clipscan/clipscan/internal/config"
	cerrors "github.com/clipscan/clipscan/internal/errors"
	"github.com/clipscan/clipscan/internal/logger"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	log := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))
	log.Info("starting clipscan server", "port", cfg.Port)

	gin.SetMode(cfg.GinMode)

	adapter := chatfeed.NewAdapter(chatfeed.Config{
		BaseURL:    cfg.CommentFeedURL,
		ClientID:   cfg.CommentFeedClientID,
		QPS:        cfg.CommentFeedQPS,
		Burst:      cfg.CommentFeedBurst,
		Timeout:    time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		MaxRetries: cfg.MaxRetries,
	}, log.WithComponent("chatfeed"))

	orchestrator := analysis.NewOrchestrator(adapter, log.WithComponent("analysis"), analysis.Config{
		WindowSec:         cfg.WindowSec,
		ClipDurationSec:   cfg.ClipDurationSec,
		MinGapSec:         cfg.MinGapSec,
		ThresholdFactor:   cfg.ThresholdFactor,
		MaxHighlights:     cfg.MaxHighlights,
		MaxPages:          cfg.MaxPages,
		AnalysisTimeoutMs: cfg.AnalysisTimeoutMs,
		ReactionDelaySec:  cfg.ReactionDelaySec,
	})

	router := setupRouter(routerInput{orchestrator: orchestrator, logger: log, corsOrigins: cfg.CORSAllowedOrigins})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("clipscan listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	log.Info("server exited")
}

type routerInput struct {
	orchestrator *analysis.Orchestrator
	logger       *logger.Logger
	corsOrigins  string
}

func setupRouter(input routerInput) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	origins := []string{"http://localhost:3000"}
	if input.corsOrigins != "" {
		split := strings.Split(input.corsOrigins, ",")
		for i, o := range split {
			split[i] = strings.TrimSpace(o)
		}
		origins = split
	}
	corsPolicy := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	router.Use(func(c *gin.Context) {
		corsPolicy.HandlerFunc(c.Writer, c.Request)
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.Abort()
			return
		}
		c.Next()
	})
	router.Use(requestIDMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/analyze", analyzeHandler(input.orchestrator))

	return router
}

// requestIDMiddleware stamps every request with a generated request ID and
// attaches it to the request context, so downstream logging (via
// logger.WithContext) carries it automatically.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := logger.GenerateRequestID()
		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

type analyzeRequest struct {
	URL string `json:"url" binding:"required"`
}

func analyzeHandler(orchestrator *analysis.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req analyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			cerrors.AbortWithInvalidInput(c, "request body must include a \"url\" field", nil)
			return
		}

		ctx := logger.WithOperation(c.Request.Context(), "analyze")
		resp, err := orchestrator.Analyze(ctx, req.URL)
		if err != nil {
			cerrors.AbortWithRunError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}
