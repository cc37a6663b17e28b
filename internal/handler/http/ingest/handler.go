package ingest_http

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tradeflow/internal/app/ingest"
	"tradeflow/internal/domain"
)

// RegisterRoutes exposes the object-store notification path. Unlike the
// queue path this one ingests inline: the upstream notifier retries on
// non-2xx responses.
func RegisterRoutes(r chi.Router, svc ingest.IngestService, logger *zap.Logger) {
	r.Post("/ingest/object-store", func(w http.ResponseWriter, req *http.Request) {
		payload, err := io.ReadAll(req.Body)
		if err != nil || len(payload) == 0 {
			http.Error(w, "empty or unreadable payload", http.StatusBadRequest)
			return
		}

		rec, err := svc.Ingest(req.Context(), payload, domain.SourceObjectStore)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateContent) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			logger.Error("Object-store ingestion failed", zap.Error(err))
			http.Error(w, "ingestion failed", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(rec.ID))
	})
}
