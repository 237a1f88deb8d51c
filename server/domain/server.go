package domain

import "context"

// Server はHTTPサーバのライフサイクルです。
type Server interface {
	Serve() error
	Shutdown(ctx context.Context) error
	Close() error
	Addr() string
}
