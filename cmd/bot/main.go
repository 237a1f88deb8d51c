package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"
)

// 乱打アクション。不正なものはサーバ側で黙って捨てられるので、
// 負荷と到達性の確認にはこれで足ります。
var botActions = []string{
	`{"type":"start"}`,
	`{"type":"take-coins-button"}`,
	`{"type":"select-coin","color":"white"}`,
	`{"type":"select-coin","color":"blue"}`,
	`{"type":"select-coin","color":"green"}`,
	`{"type":"select-coin","color":"red"}`,
	`{"type":"select-coin","color":"black"}`,
	`{"type":"select-player-coin","color":"white"}`,
	`{"type":"reserve-card-button"}`,
	`{"type":"select-pile-card","level":1}`,
	`{"type":"buy-card-button"}`,
	`{"type":"select-board-card","rowIndex":2,"colIndex":0}`,
	`{"type":"cancel-to-start-turn"}`,
	`{"type":"skip-turn"}`,
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := getenv("ADDR", "localhost")
	port := getenv("PORT", "9090")
	game := getenv("BOT_GAME", "splendor")
	code := getenv("BOT_ROOM", "bots")
	password := os.Getenv("GAME_PASSWORD")
	botCountStr := getenv("BOT_COUNT", "3")
	botCount, err := strconv.Atoi(botCountStr)
	if err != nil {
		slog.Error("invalid BOT_COUNT", "value", botCountStr)
		os.Exit(1)
	}

	slog.Info("starting bots", "count", botCount, "game", game, "room", code)

	var wg sync.WaitGroup
	for i := range botCount {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runBot(ctx, addr, port, game, code, password, id)
		}(i)
	}

	wg.Wait()
	slog.Info("all bots stopped")
}

func runBot(ctx context.Context, addr, port, game, code, password string, id int) {
	logger := slog.With("botID", id)

	q := url.Values{}
	q.Set("playerName", fmt.Sprintf("bot-%d", id))
	q.Set("gameCode", code)
	q.Set("gameName", game)
	if password != "" {
		q.Set("password", password)
	}
	serverURL := fmt.Sprintf("ws://%s:%s/ws?%s", addr, port, q.Encode())

	for {
		if ctx.Err() != nil {
			return
		}
		err := botSession(ctx, serverURL, logger)
		if err != nil && ctx.Err() == nil {
			logger.Warn("bot session ended, reconnecting", "err", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func botSession(ctx context.Context, serverURL string, logger *slog.Logger) error {
	conn, _, err := websocket.Dial(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	logger.Info("connected")

	// 受信はビューの押し流しなので読み捨てる。
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			payload := botActions[rand.IntN(len(botActions))]
			envelope, err := json.Marshal(map[string]any{
				"type": "action",
				"data": json.RawMessage(payload),
			})
			if err != nil {
				return err
			}
			if err := conn.Write(ctx, websocket.MessageText, envelope); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}
