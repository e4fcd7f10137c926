package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lab-insight-server/internal/domain"
	"github.com/lab-insight-server/internal/middleware"
	"github.com/lab-insight-server/internal/service"
)

// Server represents the HTTP server
type Server struct {
	cfg      *domain.Config
	analyzer *service.Analyzer
	merger   *service.ResultMerger
	logger   *logrus.Logger
	router   *gin.Engine
	server   *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *domain.Config, analyzer *service.Analyzer, logger *logrus.Logger) *Server {
	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestID())

	server := &Server{
		cfg:      cfg,
		analyzer: analyzer,
		merger:   service.NewResultMerger(logger),
		logger:   logger,
		router:   router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.cfg.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   "1.0.0",
	})
}

// analyzeRequest is the request body for report analysis.
type analyzeRequest struct {
	Text    string             `json:"text" binding:"required"`
	Patient domain.PatientMeta `json:"patient"`
}

// analyzeResponse is the response body for report analysis.
type analyzeResponse struct {
	Assessments []domain.AssessmentResult  `json:"assessments"`
	Result      *domain.NormalizedAIResult `json:"result"`
	Narrative   string                     `json:"narrative,omitempty"`
}

// handleAnalyze runs the analysis pipeline for one report.
func (s *Server) handleAnalyze(c *gin.Context) {
	requestID := c.GetString("request_id")

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.NewServiceError(
			domain.ErrInvalidInput, "invalid request body", err.Error(), requestID))
		return
	}

	if req.Patient.Sex == "" {
		req.Patient.Sex = domain.SexUnspecified
	}

	report, err := s.analyzer.Analyze(c.Request.Context(), req.Text, req.Patient)
	if err != nil {
		var validationErr *domain.ValidationError
		switch {
		case errors.Is(err, domain.ErrEmptyReportText), errors.As(err, &validationErr):
			c.JSON(http.StatusBadRequest, domain.NewServiceError(
				domain.ErrValidation, "invalid analysis input", err.Error(), requestID))
		default:
			s.logger.WithError(err).WithField("request_id", requestID).Error("Report analysis failed")
			c.JSON(http.StatusInternalServerError, domain.NewServiceError(
				domain.ErrInternalServer, "report analysis failed", "", requestID))
		}
		return
	}

	c.JSON(http.StatusOK, analyzeResponse{
		Assessments: report.Assessments,
		Result:      report.Result,
		Narrative:   s.merger.Narrative(report.Result),
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
