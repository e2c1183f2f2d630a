package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rollcall/rollcall-backend/internal/config"
	"github.com/rollcall/rollcall-backend/internal/middleware"
	"github.com/rs/zerolog"
)

const (
	feedWriteTimeout = 10 * time.Second
	feedPingInterval = 30 * time.Second
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
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

// WSHandler streams live attendance marks to teacher dashboards. Marks are
// fanned out through Redis PubSub, so any API instance can serve the feed.
type WSHandler struct {
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttendanceFeed godoc
// WS /ws/v1/teacher/courses/:code/feed?token=...
// Upgrades to WebSocket and forwards each attendance mark recorded for the
// course as a JSON text message, in real time, until the client disconnects.
func (h *WSHandler) AttendanceFeed(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	courseCode := c.Param("code")
	if courseCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course code required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	sub := h.rdb.Subscribe(ctx, config.CacheKey.AttendanceFeedChannel(courseCode))
	defer sub.Close()

	h.log.Info().
		Str("teacher", claims.Subject).
		Str("course", courseCode).
		Msg("Attendance feed opened")

	// Reader goroutine: drain control frames and detect client close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
