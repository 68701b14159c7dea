package hub

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/faizdevx/CrashNet/internal/metrics"
)

// Server exposes the hub over HTTP: the subscriber websocket endpoint
// and the ingress endpoints the gateway posts events to.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewServer(h *Hub, log *zap.Logger) *Server {
	return &Server{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dashboards connect from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

func (s *Server) Register(r *gin.Engine) {
	r.GET("/ws", s.HandleWS)
	r.POST("/telemetry", s.HandleIngress)
	r.POST("/alert", s.HandleIngress)
	r.GET("/health", s.Health)
	r.GET("/metrics", gin.WrapF(metrics.HandleMetrics))
}

func (s *Server) HandleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	s.hub.Subscribe(conn)
}

// HandleIngress accepts a broadcast event from the gateway, schedules
// the fan-out and acknowledges immediately. The payload is forwarded
// opaquely; the hub does not interpret event shapes.
func (s *Server) HandleIngress(c *gin.Context) {
	var payload json.RawMessage
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be JSON"})
		return
	}

	s.hub.Broadcast(payload)
	c.JSON(http.StatusOK, gin.H{
		"status":  "broadcasted",
		"clients": s.hub.Count(),
	})
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"clients": s.hub.Count(),
	})
}
