package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	adapterwebsocket "parlor/server/adapter/websocket"
	"parlor/server/domain"
)

// AcceptHandler はwebsocket接続の入口です。接続ごとにServeHTTPが
// 切断までブロックします。
type AcceptHandler struct {
	registry *domain.Registry
	password string
}

func NewAcceptHandler(registry *domain.Registry, password string) *AcceptHandler {
	return &AcceptHandler{registry: registry, password: password}
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if h.password != "" {
		given := q.Get("password")
		if subtle.ConstantTimeCompare([]byte(given), []byte(h.password)) != 1 {
			http.Error(w, "invalid password", http.StatusUnauthorized)
			return
		}
	}

	playerName := q.Get("playerName")
	gameCode := q.Get("gameCode")
	gameName := q.Get("gameName")
	if playerName == "" || gameCode == "" || gameName == "" {
		http.Error(w, "playerName, gameCode and gameName are required", http.StatusBadRequest)
		return
	}
	// アップグレード前に弾く。知らないゲーム名でRoomを作らないため。
	if !h.registry.HasVariant(gameName) {
		http.Error(w, "unknown game", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// 信頼できるフロントが同一ホストから接続する前提です。
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}

	sock := domain.NewSocket(playerName, domain.NewConnection(adapterwebsocket.NewTransport(conn)))
	if err := h.registry.Connect(gameName, gameCode, sock); err != nil {
		slog.ErrorContext(ctx, "failed to connect socket to room", "err", err)
		conn.Close(websocket.StatusInternalError, "room unavailable")
		return
	}
	slog.DebugContext(ctx, "accepted new connection",
		"socketID", sock.ID(), "viewer", playerName, "game", gameName, "code", gameCode)

	if err := sock.Run(ctx); err != nil {
		slog.DebugContext(ctx, "socket closed", "socketID", sock.ID(), "err", err)
	}
}
