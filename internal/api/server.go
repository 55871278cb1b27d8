// Package api exposes the scan pipeline over HTTP for the serve subcommand.
package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/dshills/regcritic/internal/pipeline"
	"github.com/dshills/regcritic/internal/redact"
	"github.com/dshills/regcritic/internal/schema"
)

// scanRequest is the POST /v1/scan body.
type scanRequest struct {
	Query string `json:"query"`
}

// scanResponse wraps the verdict for HTTP consumers.
type scanResponse struct {
	Verdict     schema.Verdict             `json:"verdict"`
	Synthesized *schema.SynthesizedReport  `json:"synthesized,omitempty"`
}

// NewRouter builds the HTTP router around a configured pipeline.
func NewRouter(p *pipeline.Pipeline) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]string{"status": "ok"})
	})

	r.Post("/v1/scan", func(w http.ResponseWriter, req *http.Request) {
		var body scanRequest
		if err := render.DecodeJSON(req.Body, &body); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]string{"error": "invalid json"})
			return
		}
		q := strings.TrimSpace(body.Query)
		if q == "" {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]string{"error": "query is required"})
			return
		}

		result, err := p.Run(req.Context(), redact.Redact(q), nil)
		if err != nil {
			render.Status(req, http.StatusInternalServerError)
			render.JSON(w, req, map[string]string{"error": err.Error()})
			return
		}

		render.JSON(w, req, scanResponse{
			Verdict:     result.Verdict,
			Synthesized: result.Synthesized,
		})
	})

	return r
}
