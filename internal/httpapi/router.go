// Package httpapi serves the JSON endpoints that bridge clients call. Every
// database access goes through the injected pgpool.DB.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vango-go/vango-glue/pgpool"
)

// Handler holds the dependencies shared by all endpoints.
type Handler struct {
	db pgpool.DB
}

// NewRouter returns a gin engine with the health, echo and database routes.
// A nil logger discards.
func NewRouter(db pgpool.DB, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Handler{db: db}

	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger), Recovery(logger))

	router.GET("/healthz", h.Health)

	api := router.Group("/api")
	api.POST("/echo", h.Echo)
	api.POST("/db/ping", h.DBPing)

	return router
}

// Health reports pool statistics, or 503 when no handle can reach the server.
func (h *Handler) Health(c *gin.Context) {
	status, err := pgpool.HealthCheck(c.Request.Context(), h.db)
	if err != nil {
		respondPoolError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Echo returns the posted JSON object with "status":"ok" added.
func (h *Handler) Echo(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil || body == nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "request body must be a JSON object")
		return
	}
	body["status"] = "ok"
	c.JSON(http.StatusOK, body)
}

// PingResponse is returned by DBPing.
type PingResponse struct {
	Status    string  `json:"status"`
	LatencyMS float64 `json:"latency_ms"`
}

// DBPing leases a handle and runs SELECT 1 on it.
func (h *Handler) DBPing(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()

	err := pgpool.WithConn(ctx, h.db, func(conn pgpool.Conn) error {
		var one int
		return conn.QueryRow(ctx, "SELECT 1").Scan(&one)
	})
	if err != nil {
		respondPoolError(c, err)
		return
	}
	c.JSON(http.StatusOK, PingResponse{
		Status:    "ok",
		LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
	})
}
