package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handlers, contentRoot string) chi.Router {
	r := chi.NewRouter()

	r.Post("/upload", h.Upload)
	r.Post("/internal/metadata-extraction-status", h.ReportMetadata)
	r.Post("/internal/enhancement-status", h.ReportEnhancement)
	r.Get("/metadata/{filename}", h.GetMetadata)
	r.Get("/ws/{clientID}", h.OpenChannel)

	// uploads and derived artifacts, served straight off the content store
	r.Handle("/storage/*", http.StripPrefix("/storage/", http.FileServer(http.Dir(contentRoot))))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
