package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"spatialdoc/core-go/internal/metrics"
	"spatialdoc/core-go/internal/workspace"
)

type Handler struct {
	log     zerolog.Logger
	ws      *workspace.Workspace
	metrics *metrics.Metrics
}

func NewHandler(log zerolog.Logger, ws *workspace.Workspace, m *metrics.Metrics) *Handler {
	return &Handler{log: log, ws: ws, metrics: m}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Route("/document", func(r chi.Router) {
				r.Get("/", h.handleGetDocument)
				r.Post("/reset", h.handleResetDocument)
				r.Post("/view", h.handleSetView)
				r.Put("/displayed", h.handleSetDisplayedMap)
				r.Delete("/maps/{kind}/{index}", h.handleRemoveMap)
				r.Get("/shapes", h.handleListShapes)

				r.Route("/drawings", func(r chi.Router) {
					r.Post("/", h.handleImportDrawing)
					r.Delete("/{file}", h.handleRemoveDrawing)
					r.Put("/{file}/layers/{layer}", h.handleSetLayerShown)
				})

				r.Route("/lattices", func(r chi.Router) {
					r.Post("/", h.handleAddLattice)
					r.Put("/grid", h.handleSetGrid)
					r.Post("/points", h.handleFillPoint)
					r.Delete("/points", h.handleClearPoints)
					r.Delete("/graph", h.handleUnmakeGraph)
				})

				r.Get("/attribute", h.handleGetDisplayedAttribute)
				r.Put("/attribute", h.handleSetDisplayedAttribute)
				r.Route("/attributes", func(r chi.Router) {
					r.Get("/", h.handleListAttributes)
					r.Post("/", h.handleAddAttribute)
					r.Delete("/{column}", h.handleRemoveAttribute)
				})

				r.Route("/selection", func(r chi.Router) {
					r.Get("/", h.handleGetSelection)
					r.Post("/", h.handleSetSelection)
					r.Delete("/", h.handleClearSelection)
					r.Post("/layer", h.handleSelectionToLayer)
				})

				r.Route("/shapes/edit", func(r chi.Router) {
					r.Post("/", h.handleMakeShape)
					r.Put("/", h.handleMoveShape)
					r.Delete("/", h.handleRemoveSelected)
				})
				r.Post("/undo", h.handleUndo)
				r.Post("/push", h.handlePushValues)
				r.Post("/isovists", h.handleMakeIsovist)
			})

			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", h.handleListJobs)
				r.Post("/", h.handleSubmitJob)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.handleGetJob)
					r.Delete("/", h.handleCancelJob)
				})
			})

			r.Route("/snapshots", func(r chi.Router) {
				r.Get("/", h.handleListSnapshots)
				r.Post("/", h.handleSaveSnapshot)
				r.Route("/{id}", func(r chi.Router) {
					r.Delete("/", h.handleDeleteSnapshot)
					r.Post("/load", h.handleLoadSnapshot)
				})
			})
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set(middleware.RequestIDHeader, middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), time.Since(start))

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeValidation(w http.ResponseWriter, msg string, err error) {
	var details map[string]any
	if err != nil {
		details = map[string]any{"error": err.Error()}
	}
	h.writeError(w, http.StatusBadRequest, "validation_failed", msg, details)
}

// writeBusy reports a request that gave up waiting for the document while a
// job held it.
func (h *Handler) writeBusy(w http.ResponseWriter, err error) {
	h.log.Warn().Err(err).Msg("document busy")
	w.Header().Set("Retry-After", "1")
	h.writeError(w, http.StatusServiceUnavailable, "document_busy", "document is busy with a running job", nil)
}

// writeRefused reports an operation the document declined in its current state.
func (h *Handler) writeRefused(w http.ResponseWriter, msg string) {
	h.writeError(w, http.StatusConflict, "refused", msg, nil)
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

// decodeOptional is decodeJSONStrict that accepts an empty body.
func decodeOptional(r *http.Request, dst any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return decodeJSONStrict(r, dst)
}

func intParam(r *http.Request, name string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, name))
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.ws.Ping(ctx); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "store_unavailable", "snapshot store not ready", map[string]any{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}
