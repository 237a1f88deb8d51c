package config

import (
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// Config はサーバの実行時設定です。すべて環境変数から読みます。
type Config struct {
	Addr string `env:"ADDR" envDefault:"localhost"`
	Port string `env:"PORT" envDefault:"9090"`

	// Password が空の場合はパスワードゲートを無効にします。
	Password string `env:"GAME_PASSWORD"`

	// ドメイン所有確認用のエンドポイント。Tokenが空なら公開しません。
	ChallengePath  string `env:"CHALLENGE_PATH" envDefault:"/challenge"`
	ChallengeToken string `env:"CHALLENGE_TOKEN"`

	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
