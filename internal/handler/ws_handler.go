package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lernio/lernio-backend/internal/config"
	"github.com/lernio/lernio-backend/internal/middleware"
	"github.com/lernio/lernio-backend/internal/model"
	"github.com/lernio/lernio-backend/internal/service"
	ws "github.com/lernio/lernio-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams live session events to staff observers.
type WSHandler struct {
	rdb               *redis.Client
	assessmentService *service.AssessmentService
	log               zerolog.Logger
	upgrader          websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, assessmentService *service.AssessmentService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:               rdb,
		assessmentService: assessmentService,
		log:               log.With().Str("component", "ws_handler").Logger(),
		upgrader:          buildUpgrader(allowedOrigins),
	}
}

// MonitorStream godoc
// WS /ws/v1/assessments/:id/monitor
// Upgrades to WebSocket and forwards the assessment's live session
// events from Redis PubSub. Observers must own the assessment or be
// admins; the JWT rides in the token query parameter.
func (h *WSHandler) MonitorStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	assessmentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	assessment, err := h.assessmentService.Get(c.Request.Context(), assessmentID)
	if err != nil {
		failFromService(c, err)
		return
	}
	if claims.Role != model.RoleAdmin && assessment.AuthorID != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", claims.UserID.String()).
		Str("assessment_id", assessmentID.String()).
		Logger()
	wsLog.Info().Msg("Observer connected")

	channel := config.CacheKey.AssessmentMonitorChannel(assessmentID.String())
	pubsub := h.rdb.Subscribe(c.Request.Context(), channel)
	defer pubsub.Close()

	// Forward published events until either side goes away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			var payload json.RawMessage = []byte(msg.Payload)
			if err := ws.WriteTyped(conn, ws.MonitorFrame{Event: ws.EventMonitor, Payload: payload}); err != nil {
				wsLog.Debug().Err(err).Msg("Observer write failed")
				return
			}
		}
	}()

	// Read loop keeps the connection honest: answers pings, detects close.
	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Observer disconnected")
			}
			break
		}
		switch msg.Action {
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			_ = ws.WriteError(conn, "unknown action")
		}
	}

	_ = pubsub.Close()
	<-done
}
