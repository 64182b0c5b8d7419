package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/weatherdash/weatherdash/internal/analytics"
	"github.com/weatherdash/weatherdash/internal/api/models"
)

// StreamConfig contains configuration for view stream connections.
type StreamConfig struct {
	// Time allowed to write a message to the peer.
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration

	// Send pings to peer with this period. Must be less than PongWait.
	PingPeriod time.Duration

	// Maximum message size allowed from peer.
	MaxMessageSize int64

	// AllowedOrigins lists the browser origins that may connect. "*" allows any.
	AllowedOrigins []string
}

// DefaultStreamConfig returns the default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 4 << 10,
		AllowedOrigins: []string{"*"},
	}
}

// StreamHandler pushes the analytics view to websocket clients whenever it changes.
type StreamHandler struct {
	controller *analytics.Controller
	logger     zerolog.Logger
	cfg        StreamConfig
	upgrader   websocket.Upgrader
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(controller *analytics.Controller, cfg StreamConfig, logger zerolog.Logger) *StreamHandler {
	defaults := DefaultStreamConfig()
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaults.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaults.PongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = (cfg.PongWait * 9) / 10
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = defaults.AllowedOrigins
	}

	h := &StreamHandler{
		controller: controller,
		logger:     logger,
		cfg:        cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP handles GET /v1/analytics/stream. The current view is sent on connect,
// then every newer view as it is published. Views that arrive faster than the
// client reads are coalesced to the latest.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an HTTP error.
		h.logger.Warn().
			Err(err).
			Str("request_id", requestID(r)).
			Msg("websocket upgrade failed")
		return
	}

	client := &streamClient{
		conn:    conn,
		cfg:     h.cfg,
		logger:  h.logger.With().Str("request_id", requestID(r)).Logger(),
		updates: make(chan analytics.State, 1),
		done:    make(chan struct{}),
	}

	unsubscribe := h.controller.Subscribe(client.offer)
	client.offer(h.controller.Snapshot())

	client.logger.Debug().Msg("view stream connected")

	go client.readPump()
	client.writePump()

	unsubscribe()
	client.logger.Debug().Msg("view stream disconnected")
}

func (h *StreamHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	// Same-origin connections are always allowed.
	return strings.EqualFold(u.Host, r.Host)
}

// streamClient is one connected websocket.
type streamClient struct {
	conn    *websocket.Conn
	cfg     StreamConfig
	logger  zerolog.Logger
	updates chan analytics.State
	done    chan struct{}
}

// offer queues st for sending, replacing any state not yet sent. It never blocks.
func (c *streamClient) offer(st analytics.State) {
	for {
		select {
		case c.updates <- st:
			return
		default:
		}
		select {
		case queued := <-c.updates:
			if queued.Version > st.Version {
				st = queued
			}
		default:
		}
	}
}

// readPump discards client messages and watches for the connection to close.
func (c *streamClient) readPump() {
	defer close(c.done)

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("view stream read failed")
			}
			return
		}
	}
}

// writePump sends views and pings until the connection fails or the peer goes away.
func (c *streamClient) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	var sent uint64
	for {
		select {
		case st := <-c.updates:
			if sent != 0 && st.Version <= sent {
				continue
			}
			msg := models.StreamMessage{
				Type: models.StreamMessageView,
				View: analytics.BuildView(st),
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug().Err(err).Msg("view stream write failed")
				return
			}
			sent = st.Version

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteWait))
			return
		}
	}
}
