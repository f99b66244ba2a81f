// Package frontendmetrics ingests client-side telemetry beacons and turns
// them into Prometheus series. Input is hostile by definition: names are
// pattern-checked and tags reduced to an allow-list so cardinality stays
// bounded.
package frontendmetrics

import (
	"encoding/json"
	"math"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	dErrors "keeply/pkg/domain-errors"
	"keeply/pkg/platform/httputil"
)

var metricNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-]{1,64}$`)

const maxTagLength = 64

type beacon struct {
	Metric string            `json:"metric"`
	Value  *float64          `json:"value"`
	Tags   map[string]string `json:"tags"`
}

type Handler struct {
	metrics *Metrics
}

func NewHandler(metrics *Metrics) *Handler {
	return &Handler{metrics: metrics}
}

// Routes mounts the ingestion endpoint.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/frontend", h.handleIngest)
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req beacon
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
			"JSON inválido ou campos em formato incorreto."))
		return
	}

	if !metricNamePattern.MatchString(req.Metric) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Nome de metrica invalido."))
		return
	}

	value := 1.0
	if req.Value != nil {
		value = *req.Value
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Valor de metrica invalido."))
		return
	}

	path, source := sanitizeTag(req.Tags["path"], "unknown"), sanitizeTag(req.Tags["source"], "web")
	h.metrics.Record(req.Metric, path, source, value)

	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

// sanitizeTag trims, caps length, and falls back when blank. Only
// allow-listed tag keys ever reach this point.
func sanitizeTag(raw, fallback string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return fallback
	}
	if len(cleaned) > maxTagLength {
		cleaned = cleaned[:maxTagLength]
	}
	return cleaned
}
