// Package httpapp serves the copy-job JSON API used by the console.
package httpapp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/Azure/cosmos-explorer-sub010/internal/arm"
	"github.com/Azure/cosmos-explorer-sub010/internal/metrics"
	"github.com/Azure/cosmos-explorer-sub010/internal/panel"
	"github.com/Azure/cosmos-explorer-sub010/internal/prereq"
)

const (
	// ContextKeyRequestID stores the request id echoed in X-Request-ID and
	// in error bodies.
	ContextKeyRequestID = "request_id"

	DefaultSessionIdle = 30 * time.Minute

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"
)

// ManagementAPI is the management-plane surface the API needs.
type ManagementAPI interface {
	prereq.AccountReader
	ListDataTransferJobs(ctx context.Context, accountID string) ([]arm.DataTransferJob, error)
	GetDataTransferJob(ctx context.Context, accountID, jobName string) (arm.DataTransferJob, error)
	CreateDataTransferJob(ctx context.Context, accountID string, in arm.CreateDataTransferJobInput) (arm.DataTransferJob, error)
	DataTransferJobAction(ctx context.Context, accountID, jobName, action string) (arm.DataTransferJob, error)
}

type Deps struct {
	ARM         ManagementAPI
	Resolver    *prereq.Resolver
	Remediator  panel.Remediator
	// SessionIdle closes sessions left without requests; zero uses
	// DefaultSessionIdle.
	SessionIdle time.Duration
}

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	deps     Deps
	sessions *sessionStore
	e        *echo.Echo
}

func NewEchoServer(deps Deps) *EchoServer {
	if deps.Resolver == nil {
		deps.Resolver = &prereq.Resolver{}
	}
	if deps.SessionIdle <= 0 {
		deps.SessionIdle = DefaultSessionIdle
	}
	e := echo.New()
	e.Logger = slog.Default()
	es := &EchoServer{deps: deps, sessions: newSessionStore(deps.SessionIdle), e: e}
	e.HTTPErrorHandler = es.httpErrorHandler
	e.Use(middleware.Recover())
	e.Use(requestID)
	es.registerRoutes()
	go es.sessions.sweepEvery(sweepInterval(deps.SessionIdle))
	return es
}

func sweepInterval(idle time.Duration) time.Duration {
	interval := idle / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

func (es *EchoServer) registerRoutes() {
	es.e.GET("/healthz", es.handleHealthz)
	es.e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := es.e.Group("/api")
	api.POST("/sessions", es.handleCreateSession)
	api.GET("/sessions/:id", es.handleGetSession)
	api.PATCH("/sessions/:id", es.handleUpdateSession)
	api.DELETE("/sessions/:id", es.handleCloseSession)
	api.GET("/sessions/:id/prerequisites", es.handlePrerequisites)
	api.POST("/sessions/:id/prerequisites/revalidate", es.handleRevalidate)
	api.POST("/sessions/:id/remediations/:section", es.handleRemediate)
	api.POST("/sessions/:id/jobs", es.handleCreateJob)

	api.GET("/jobs", es.handleListJobs)
	api.GET("/jobs/:name", es.handleGetJob)
	api.POST("/jobs/:name/:action", es.handleJobAction)
}

// ServeHTTP lets the server be mounted on a plain http.Server.
func (es *EchoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	es.e.ServeHTTP(w, r)
}

// Close stops the idle sweep and discards every open panel session.
func (es *EchoServer) Close() {
	es.sessions.closeAll()
}

func requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := c.Request().Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Response().Header().Set("X-Request-ID", id)
		return next(c)
	}
}

func (es *EchoServer) handleHealthz(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
