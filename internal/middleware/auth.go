package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerAuth пропускает запросы с "Authorization: Bearer <key>".
// Пустой key отключает проверку.
func BearerAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(key)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="material-service"`)
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"status":"erro","mensagem":"chave de API inválida"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
