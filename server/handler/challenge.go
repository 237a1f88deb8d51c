package handler

import "net/http"

// NewChallengeHandler はドメイン所有確認用のトークンを平文で返します。
// パスとトークンは環境変数で差し替えられます。
func NewChallengeHandler(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(token))
	}
}
