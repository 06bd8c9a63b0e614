package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cityconnect-be/models"
	"cityconnect-be/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
)

// issueSnapshot is one message on the issue stream.
type issueSnapshot struct {
	Type   string         `json:"type"`
	Issues []models.Issue `json:"issues"`
}

type StreamController struct {
	issues   *services.IssueService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewStreamController accepts websocket upgrades from the given origins.
// An empty list accepts any origin.
func NewStreamController(issues *services.IssueService, allowedOrigins []string, logger *zap.Logger) *StreamController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &StreamController{
		issues: issues,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		logger: logger.Named("stream"),
	}
}

// StreamIssues upgrades to a websocket and sends the matching issues,
// newest first, now and after every change. The subscription is stopped
// when the client goes away.
func (sc *StreamController) StreamIssues(c *gin.Context) {
	filters, limit, ok := bindFilters(c)
	if !ok {
		return
	}

	res := sc.issues.SubscribeToIssues(c.Request.Context(), filters, limit)
	if !res.Success {
		respondError(c, res.Err)
		return
	}
	sub := res.Data
	defer sub.Stop()

	conn, err := sc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sc.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case issues, open := <-sub.Updates():
			if !open {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(issueSnapshot{Type: "snapshot", Issues: issues}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
