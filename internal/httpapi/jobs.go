package httpapi

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"spatialdoc/core-go/internal/analysis"
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/document"
	"spatialdoc/core-go/internal/jobs"
	"spatialdoc/core-go/internal/spatial"
)

// jobRequest carries every long-running document operation. Kind selects the
// operation; the remaining fields are read only by the kinds that need them.
type jobRequest struct {
	Kind string `json:"kind"`

	Name              string  `json:"name,omitempty"`
	KeepOriginal      bool    `json:"keep_original,omitempty"`
	PushValues        bool    `json:"push_values,omitempty"`
	Source            string  `json:"source,omitempty"`
	CopyData          bool    `json:"copy_data,omitempty"`
	StubRemoval       float64 `json:"stub_removal,omitempty"`
	FromDisplayedData bool    `json:"from_displayed_data,omitempty"`
	Replace           bool    `json:"replace,omitempty"`

	Point   *point  `json:"point,omitempty"`
	Fill    string  `json:"fill,omitempty"`
	MaxDist float64 `json:"max_dist,omitempty"`

	Analysis string    `json:"analysis,omitempty"`
	Radius   float64   `json:"radius,omitempty"`
	Radii    []float64 `json:"radii,omitempty"`
	Metric   bool      `json:"metric,omitempty"`
	FOV      float64   `json:"fov,omitempty"`
}

type jobOp func(d *document.Document, c comm.Communicator) (bool, error)

func refusable(fn func(d *document.Document, c comm.Communicator) bool) jobOp {
	return func(d *document.Document, c comm.Communicator) (bool, error) {
		return fn(d, c), nil
	}
}

func sourceType(s string, fallback spatial.MapType) (spatial.MapType, error) {
	if s == "" {
		return fallback, nil
	}
	t, ok := spatial.ParseMapType(s)
	if !ok {
		return 0, fmt.Errorf("unknown source map type %q", s)
	}
	return t, nil
}

func (req jobRequest) requirePoint() (point, error) {
	if req.Point == nil {
		return point{}, errors.New("point is required")
	}
	return *req.Point, nil
}

// build turns req into a document operation, or reports why it cannot.
func (req jobRequest) build() (jobOp, error) {
	name := strings.TrimSpace(req.Name)
	switch req.Kind {
	case "convert_drawing_axial":
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.ConvertDrawingToAxial(c, name)
		}), nil
	case "convert_drawing_segment":
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.ConvertDrawingToSegment(c, name)
		}), nil
	case "convert_data_axial":
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.ConvertDataToAxial(c, name, req.KeepOriginal, req.PushValues)
		}), nil
	case "convert_data_segment":
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.ConvertDataToSegment(c, name, req.KeepOriginal, req.PushValues)
		}), nil
	case "convert_axial_segment":
		if req.StubRemoval < 0 || req.StubRemoval >= 0.5 {
			return nil, errors.New("stub_removal must be in [0, 0.5)")
		}
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.ConvertAxialToSegment(c, name, req.KeepOriginal, req.PushValues, req.StubRemoval)
		}), nil
	case "convert_convex":
		src, err := sourceType(req.Source, spatial.TypeDrawing)
		if err != nil {
			return nil, err
		}
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.ConvertToConvex(c, name, req.KeepOriginal, src, req.CopyData)
		}), nil
	case "convert_data":
		// Anything but drawing means the displayed shape graph.
		src, err := sourceType(req.Source, spatial.TypeAxial)
		if err != nil {
			return nil, err
		}
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.ConvertToData(c, name, req.KeepOriginal, src, req.CopyData)
		}), nil
	case "convert_drawing":
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.ConvertToDrawing(c, name, req.FromDisplayedData)
		}), nil
	case "all_line_map":
		p, err := req.requirePoint()
		if err != nil {
			return nil, err
		}
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.MakeAllLineMap(c, p.r2())
		}), nil
	case "fewest_line_map":
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.MakeFewestLineMap(c, req.Replace)
		}), nil

	case "make_points":
		p, err := req.requirePoint()
		if err != nil {
			return nil, err
		}
		fill := spatial.FillFull
		switch req.Fill {
		case "", "full":
		case "augmented":
			fill = spatial.FillAugmented
		default:
			return nil, fmt.Errorf("unknown fill %q", req.Fill)
		}
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.MakePoints(c, p.r2(), fill)
		}), nil
	case "make_graph":
		if req.MaxDist < 0 {
			return nil, errors.New("max_dist must not be negative")
		}
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.MakeGraph(c, req.MaxDist)
		}), nil
	case "analyse_vga":
		var a analysis.LatticeAnalysis
		switch req.Analysis {
		case "", "visual_global":
			a = analysis.VisualGlobal{Radius: int(req.Radius)}
		case "visual_local":
			a = analysis.VisualLocal{}
		case "isovist":
			a = analysis.IsovistArea{}
		default:
			return nil, fmt.Errorf("unknown vga analysis %q", req.Analysis)
		}
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.AnalyseGraph(c, a)
		}), nil

	case "analyse_axial":
		radii := make([]int, 0, len(req.Radii))
		for _, r := range req.Radii {
			if r != math.Trunc(r) {
				return nil, fmt.Errorf("axial radius %g is not a whole number of steps", r)
			}
			radii = append(radii, int(r))
		}
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.AnalyseAxial(c, radii)
		}), nil
	case "analyse_angular":
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.AnalyseSegmentsAngular(c, req.Radii)
		}), nil
	case "analyse_topomet":
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.AnalyseTopoMet(c, req.Radius)
		}), nil
	case "step_depth":
		return func(d *document.Document, c comm.Communicator) (bool, error) {
			return d.AnalyseStepDepth(c, req.Metric)
		}, nil
	case "isovist_path":
		fov := req.FOV
		if fov <= 0 {
			fov = 2 * math.Pi
		}
		return refusable(func(d *document.Document, c comm.Communicator) bool {
			return d.MakeIsovistPath(c, fov) != document.IsovistNone
		}), nil
	case "":
		return nil, errors.New("kind is required")
	default:
		return nil, fmt.Errorf("unknown job kind %q", req.Kind)
	}
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ws.Queue().List())
}

func (h *Handler) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	op, err := req.build()
	if err != nil {
		h.writeValidation(w, err.Error(), nil)
		return
	}
	job := h.ws.SubmitErr(req.Kind, op)
	h.log.Info().Str("job_id", job.ID).Str("kind", job.Kind).Msg("job queued")
	h.writeJSON(w, http.StatusAccepted, job)
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.ws.Queue().Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeJobError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

func (h *Handler) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.ws.Queue().Cancel(chi.URLParam(r, "id"))
	if err != nil {
		h.writeJobError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

func (h *Handler) writeJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "job not found", nil)
	case errors.Is(err, jobs.ErrFinished):
		h.writeError(w, http.StatusConflict, "job_finished", "job already finished", nil)
	default:
		h.log.Error().Err(err).Msg("job lookup failed")
		h.writeError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
