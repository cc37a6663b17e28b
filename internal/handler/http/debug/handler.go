package debug_http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tradeflow/internal/stream"
)

const manualMessage = `{"fileId":"TEST123","sourceservice":"trade-capture","status":"received"}`

// RegisterRoutes exposes introspection endpoints for manual poking at the
// status stream.
func RegisterRoutes(r chi.Router, s stream.Stream, streamKey string, logger *zap.Logger) {
	r.Get("/debug/stream-info", func(w http.ResponseWriter, req *http.Request) {
		length, err := s.Len(req.Context(), streamKey)
		if err != nil {
			http.Error(w, fmt.Sprintf("Error: %v", err), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "Stream length: %d", length)
	})

	r.Post("/debug/manual-message", func(w http.ResponseWriter, req *http.Request) {
		id, err := s.Append(req.Context(), streamKey, map[string]string{"payload": manualMessage})
		if err != nil {
			http.Error(w, fmt.Sprintf("Error: %v", err), http.StatusInternalServerError)
			return
		}
		logger.Info("Manual status entry appended", zap.String("entry_id", id))
		fmt.Fprintf(w, "Manual message sent: %s", manualMessage)
	})
}
