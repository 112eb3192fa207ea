package router

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mohammed-shakir/heatbox-map/internal/catalog"
	"github.com/mohammed-shakir/heatbox-map/internal/core/observability"
	"github.com/mohammed-shakir/heatbox-map/internal/evaluate"
	"github.com/mohammed-shakir/heatbox-map/internal/hotness"
	"github.com/mohammed-shakir/heatbox-map/internal/kommune"
	mylog "github.com/mohammed-shakir/heatbox-map/internal/logger"
	"github.com/mohammed-shakir/heatbox-map/internal/mapper"
	"github.com/mohammed-shakir/heatbox-map/internal/panel"
	"github.com/mohammed-shakir/heatbox-map/internal/popup"
	"github.com/mohammed-shakir/heatbox-map/internal/source"
)

// Deps are the collaborators behind the HTTP handlers. Kommunen, Hot and
// Mapper are optional.
type Deps struct {
	Logger    *slog.Logger
	Catalog   *catalog.Catalog
	Evaluator *evaluate.Evaluator
	Popups    *popup.Registry
	Kommunen  *kommune.Service
	Hot       hotness.Interface
	Mapper    mapper.Interface
	H3Res     int
}

type Handlers struct {
	Deps
}

func New(d Deps) *Handlers {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Evaluator == nil {
		d.Evaluator = evaluate.New(d.Logger)
	}
	if d.Popups == nil {
		d.Popups = popup.Default()
	}
	return &Handlers{Deps: d}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

func writeJSON(w http.ResponseWriter, code int, contentType string, v any) {
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError echoes the request id so a client report can be matched to the logs.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, "", errorBody{Error: msg, RequestID: mylog.RequestID(r.Context())})
}

// Layers lists the configured categories with their load state.
func (h *Handlers) Layers() http.HandlerFunc {
	return instrument("/layers", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, "", h.Catalog.Summaries())
	})
}

// Layer serves the loaded FeatureCollection of one category.
func (h *Handlers) Layer() http.HandlerFunc {
	return instrument("/layers/{category}", func(w http.ResponseWriter, r *http.Request) {
		fc, err := h.Catalog.Layer(chi.URLParam(r, "category"))
		if err != nil {
			writeError(w, r, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, "application/geo+json", fc)
	})
}

// Popup renders the popup of one feature; HTML unless format=json.
func (h *Handlers) Popup() http.HandlerFunc {
	return instrument("/layers/{category}/features/{index}/popup", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "category")
		idx, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil || idx < 0 {
			writeError(w, r, http.StatusBadRequest, "index must be a non-negative integer")
			return
		}
		f, err := h.Catalog.Feature(name, idx)
		if err != nil {
			writeError(w, r, http.StatusNotFound, err.Error())
			return
		}
		p := h.Popups.Format(name, f.Properties)
		if r.URL.Query().Get("format") == "json" {
			writeJSON(w, http.StatusOK, "", p)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := popup.RenderHTML(w, p); err != nil {
			h.Logger.ErrorContext(r.Context(), "popup render failed", "category", name, "err", err)
		}
	})
}

// Evaluate groups the loaded features intersecting the posted polygon.
func (h *Handlers) Evaluate() http.HandlerFunc {
	return instrument("/evaluate", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		ctx := mylog.WithEvaluationID(r.Context(), id)

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		poly, err := ParsePolygon(body)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		cats, err := parseCategories(r.URL.Query().Get("categories"), h.Catalog.Categories())
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		res, found := h.Evaluator.Evaluate(ctx, poly, cats, h.Catalog.Collections())
		observability.ObserveEvaluation(found, time.Since(start).Seconds())
		for _, s := range res.Skipped {
			observability.IncFeatureSkipped(s.Category, s.Reason)
		}
		h.markHot(ctx, poly)

		h.Logger.InfoContext(ctx, "evaluated polygon",
			"found", found,
			"groups", len(res.Groups),
			"total", res.Total(),
			"skipped", len(res.Skipped),
		)

		f := panel.Negotiate(r.URL.Query().Get("format"), r.Header.Get("Accept"))
		w.Header().Set("Content-Type", f.ContentType())
		w.Header().Set("X-Evaluation-ID", id)
		if err := panel.Render(w, panel.Build(id, res), f); err != nil {
			h.Logger.ErrorContext(ctx, "panel render failed", "err", err)
		}
	})
}

// Kommune serves the info box of one municipality.
func (h *Handlers) Kommune() http.HandlerFunc {
	return instrument("/kommunen/{ags}", func(w http.ResponseWriter, r *http.Request) {
		if h.Kommunen == nil {
			writeError(w, r, http.StatusServiceUnavailable, "municipality lookup not configured")
			return
		}
		box, err := h.Kommunen.InfoBox(r.Context(), chi.URLParam(r, "ags"))
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, "", box)
		case errors.Is(err, kommune.ErrInvalidAGS):
			writeError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, source.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "Kommune nicht gefunden")
		default:
			h.Logger.WarnContext(r.Context(), "kommune lookup failed", "err", err)
			writeError(w, r, http.StatusBadGateway, "upstream lookup failed")
		}
	})
}
