package handler

import (
	"context"
	"net/http"
	"strings"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/middleware"
	ws "chatterbox/internal/infrastructure/websocket"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
	"chatterbox/pkg/response"
)

type WebSocketHandler struct {
	wsManager *ws.Manager
	deps      ws.SessionDeps
	upgrader  gorillaws.Upgrader
	// baseCtx outlives the upgrade request so sessions stop only on disconnect
	// or server shutdown.
	baseCtx context.Context
}

var webSocketHandler *WebSocketHandler

func NewWebSocketHandler(ctx context.Context, wsManager *ws.Manager, deps ws.SessionDeps, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager: wsManager,
		deps:      deps,
		baseCtx:   ctx,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func SetupWebSocketHandler(ctx context.Context, wsManager *ws.Manager, deps ws.SessionDeps, allowedOrigins []string) {
	webSocketHandler = NewWebSocketHandler(ctx, wsManager, deps, allowedOrigins)
}

func GetWebSocketHandler() *WebSocketHandler {
	return webSocketHandler
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		logger.Warn("WebSocket: rejected origin %s", origin)
		return false
	}
}

// HandleWebSocket upgrades the request and runs a realtime session until the
// socket closes. Query mode=light follows only last messages.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("WebSocket: upgrade failed for user %s: %v", userID, err)
		return nil
	}

	client := ws.NewClient(userID, conn)
	if !h.wsManager.Add(client) {
		conn.Close()
		return nil
	}

	session := ws.NewSession(h.baseCtx, userID, h.deps, client.Enqueue)
	if err := session.Start(c.QueryParam("mode") == "light"); err != nil {
		logger.Error("WebSocket: failed to start session for user %s: %v", userID, err)
	}

	go client.WritePump()
	client.ReadPump(h.wsManager, session.Handle)
	session.Close()

	return nil
}
