package server

import (
	"net/http"

	"parlor/config"
	"parlor/server/domain"
	"parlor/server/handler"
)

func Route(registry *domain.Registry, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewAcceptHandler(registry, cfg.Password))
	mux.Handle("/health", handler.NewHealthHandler())
	if cfg.ChallengeToken != "" {
		mux.Handle(cfg.ChallengePath, handler.NewChallengeHandler(cfg.ChallengeToken))
	}
	return mux
}
