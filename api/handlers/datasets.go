package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/malbeclabs/tornado/analytics/pkg/chart"
	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
)

// GetDataSet returns a persisted dataset by ID.
func (h *Handlers) GetDataSet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid dataset ID", errBadRequest))
		return
	}
	if h.cfg.Store == nil {
		h.writeError(w, r, fmt.Errorf("%w: persistence is not configured", errUnavailable))
		return
	}

	rec, err := h.cfg.Store.GetDataSet(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RegenerateRequest is the body of POST /api/datasets/{id}/charts.
type RegenerateRequest struct {
	Type              string     `json:"type"`
	Mode              string     `json:"mode,omitempty"`
	ChartDimensions   []string   `json:"chart_dimensions,omitempty"`
	BaselineDataSetID *uuid.UUID `json:"baseline_dataset_id,omitempty"`
	Persist           bool       `json:"persist,omitempty"`
}

// RegenerateCharts builds new charts from a persisted dataset, optionally
// against another persisted dataset as baseline.
func (h *Handlers) RegenerateCharts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid dataset ID", errBadRequest))
		return
	}
	if h.cfg.Store == nil {
		h.writeError(w, r, fmt.Errorf("%w: persistence is not configured", errUnavailable))
		return
	}

	var req RegenerateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	typ, err := chart.ParseType(req.Type)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	mode, err := chart.ParseMode(req.Mode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	primary, err := h.loadDataSet(r, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var secondary dataset.Set
	if req.BaselineDataSetID != nil {
		secondary, err = h.loadDataSet(r, *req.BaselineDataSetID)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("baseline: %w", err))
			return
		}
	}

	dims, err := h.chartDimensions(req.ChartDimensions, primary.Dimensions())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	charts, err := h.generate(r, typ, dims, primary, secondary, mode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if !req.Persist {
		resp, err := unsavedResponse(charts)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		resp.DataSetID = &id
		writeJSON(w, http.StatusOK, resp)
		return
	}

	recs, err := h.cfg.Store.SaveCharts(ctx, id, mode, charts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("charts regenerated", "dataset_id", id, "type", typ, "mode", mode, "charts", len(recs))
	writeJSON(w, http.StatusCreated, GenerateResponse{DataSetID: &id, Charts: savedCharts(recs)})
}

func (h *Handlers) loadDataSet(r *http.Request, id uuid.UUID) (dataset.Set, error) {
	rec, err := h.cfg.Store.GetDataSet(r.Context(), id)
	if err != nil {
		return nil, err
	}
	set, err := rec.Decode(h.cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to decode dataset %s: %w", id, err)
	}
	return set, nil
}
