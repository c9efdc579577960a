package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/useXR/quill/internal/agent"
	"github.com/useXR/quill/internal/config"
	"github.com/useXR/quill/internal/review"
	"github.com/useXR/quill/internal/undo"
	"github.com/useXR/quill/pkg/models"
)

// AgentRunner is the slice of agent.Runner the handlers need; tests swap in
// a fake fed by synthetic stream chunks.
type AgentRunner interface {
	Run(ctx context.Context, prompt string, opts agent.RunOptions) (*agent.RunResult, error)
}

// DraftEnqueuer queues asynchronous draft jobs.
type DraftEnqueuer interface {
	EnqueueDraft(ctx context.Context, documentID, prompt string) error
}

// OperationStore is the ledger surface the handlers depend on, implemented
// by OperationsRepo.
type OperationStore interface {
	Create(ctx context.Context, documentID, inputSummary, originalContent string, proposedContent *string) (*models.Operation, error)
	RecordOutcome(ctx context.Context, operationID, status string, outputContent *string) error
	Get(ctx context.Context, operationID string) (*models.Operation, error)
	ListRecent(ctx context.Context, documentID string, limit int) ([]*models.Operation, error)
}

// DocumentStore is the document surface the handlers depend on, implemented
// by DocumentsRepo.
type DocumentStore interface {
	Get(ctx context.Context, documentID string) (*models.Document, error)
	UpdateContent(ctx context.Context, documentID, content string) error
}

// Server represents the API server
type Server struct {
	echo *echo.Echo
	cfg  *config.Config
	db   *sql.DB

	runner   AgentRunner
	queue    DraftEnqueuer
	ops      OperationStore
	docs     DocumentStore
	sessions *review.Sessions
	undo     *undo.Controller

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, db *sql.DB) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	ops := NewOperationsRepo(db)
	docs := NewDocumentsRepo(db)

	server := &Server{
		echo:     e,
		cfg:      cfg,
		db:       db,
		runner:   agent.NewRunner(cfg.Agent.Binary),
		ops:      ops,
		docs:     docs,
		sessions: review.NewSessions(ops),
		undo:     undo.NewController(ops, docs),
		limiters: make(map[string]*rate.Limiter),
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// SetRunner overrides the agent runner, used by tests.
func (s *Server) SetRunner(r AgentRunner) {
	s.runner = r
}

// SetDraftQueue attaches the asynchronous draft queue. Without one the draft
// endpoint responds 503.
func (s *Server) SetDraftQueue(q DraftEnqueuer) {
	s.queue = q
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	// API v1 group
	v1 := s.echo.Group("/api/v1")

	// Agent streaming and drafting
	v1.POST("/documents/:id/agent/stream", s.StreamAgent)
	v1.POST("/documents/:id/agent/propose", s.ProposeEdit)
	v1.POST("/documents/:id/draft", s.EnqueueDraft)

	// Review cycle
	v1.GET("/documents/:id/review", s.GetReviewState)
	v1.POST("/documents/:id/review/open", s.OpenReview)
	v1.POST("/documents/:id/review/accept", s.AcceptChange)
	v1.POST("/documents/:id/review/reject", s.RejectChange)
	v1.POST("/documents/:id/review/accept-all", s.AcceptAllChanges)
	v1.POST("/documents/:id/review/reject-all", s.RejectAllChanges)
	v1.POST("/documents/:id/review/apply", s.ApplyReview)
	v1.POST("/documents/:id/review/close", s.CloseReview)

	// Operation ledger
	v1.PATCH("/operations/:id", s.UpdateOperation)
	v1.GET("/documents/:id/operations", s.ListOperations)

	// Undo
	v1.POST("/documents/:id/undo", s.UndoOperation)
}

// streamLimiter returns the per-client limiter for the SSE endpoint.
func (s *Server) streamLimiter(clientIP string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	lim, ok := s.limiters[clientIP]
	if !ok {
		perMinute := s.cfg.Stream.RequestsPerMinute
		if perMinute <= 0 {
			perMinute = 30
		}
		burst := s.cfg.Stream.Burst
		if burst <= 0 {
			burst = 5
		}
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
		s.limiters[clientIP] = lim
	}
	return lim
}

// Start begins the API server
func (s *Server) Start() error {
	// Start server in a goroutine
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.cfg.Server.Port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for handler tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
