package middleware

import (
	"net/http"

	"github.com/goccy/go-json"
)

// writeError writes a JSON error body. Middleware answers in the same shape
// as the handlers so API clients only parse one format.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
