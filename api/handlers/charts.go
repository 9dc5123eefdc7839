package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/malbeclabs/tornado/analytics/pkg/chart"
	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
	"github.com/malbeclabs/tornado/api/metrics"
	"github.com/malbeclabs/tornado/api/store"
)

// GenerateRequest is the body of POST /api/charts/generate. Dimensions are the
// targets the analyses were run over; ChartDimensions, when set, picks the
// subset and order shown on the chart.
type GenerateRequest struct {
	Type            string          `json:"type"`
	Mode            string          `json:"mode,omitempty"`
	Dimensions      []string        `json:"dimensions"`
	ChartDimensions []string        `json:"chart_dimensions,omitempty"`
	Analyses        json.RawMessage `json:"analyses"`
	Baseline        json.RawMessage `json:"baseline,omitempty"`
	Persist         bool            `json:"persist,omitempty"`
}

// GeneratedChart is one chart of a generation. ID is set once persisted.
type GeneratedChart struct {
	ID    *uuid.UUID      `json:"id,omitempty"`
	Rank  int             `json:"rank"`
	Chart json.RawMessage `json:"chart"`
}

type GenerateResponse struct {
	DataSetID *uuid.UUID       `json:"dataset_id,omitempty"`
	Charts    []GeneratedChart `json:"charts"`
}

// GenerateCharts builds a dataset from the posted analyses and turns it into
// charts, optionally against a baseline.
func (h *Handlers) GenerateCharts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GenerateRequest
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
	if req.Persist && h.cfg.Store == nil {
		h.writeError(w, r, fmt.Errorf("%w: persistence is not configured", errUnavailable))
		return
	}

	dims, err := h.cfg.Schema.Collection(req.Dimensions...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	chartDims, err := h.chartDimensions(req.ChartDimensions, dims)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	primary, err := h.buildDataSet(r, req.Analyses, dims)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var secondary dataset.Set
	if len(req.Baseline) > 0 && string(req.Baseline) != "null" {
		secondary, err = h.buildDataSet(r, req.Baseline, dims)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("baseline: %w", err))
			return
		}
	}

	charts, err := h.generate(r, typ, chartDims, primary, secondary, mode)
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
		writeJSON(w, http.StatusOK, resp)
		return
	}

	ds, recs, err := h.cfg.Store.SaveGeneration(ctx, primary, mode, charts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("charts generated", "dataset_id", ds.ID, "type", typ, "mode", mode, "charts", len(recs))
	writeJSON(w, http.StatusCreated, GenerateResponse{DataSetID: &ds.ID, Charts: savedCharts(recs)})
}

// GetChart returns a persisted chart by ID.
func (h *Handlers) GetChart(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid chart ID", errBadRequest))
		return
	}
	if h.cfg.Store == nil {
		h.writeError(w, r, fmt.Errorf("%w: persistence is not configured", errUnavailable))
		return
	}

	rec, err := h.cfg.Store.GetChart(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListCharts returns a page of persisted charts, optionally for one dataset.
func (h *Handlers) ListCharts(w http.ResponseWriter, r *http.Request) {
	var datasetID *uuid.UUID
	if s := r.URL.Query().Get("dataset_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: invalid dataset_id", errBadRequest))
			return
		}
		datasetID = &id
	}
	if h.cfg.Store == nil {
		h.writeError(w, r, fmt.Errorf("%w: persistence is not configured", errUnavailable))
		return
	}

	pagination, err := ParsePagination(r, DefaultLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	recs, total, err := h.cfg.Store.ListCharts(r.Context(), datasetID, pagination.Limit, pagination.Offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PaginatedResponse[*store.ChartRecord]{
		Items:  recs,
		Total:  total,
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
	})
}

// ExportResponse is the answer to POST /api/charts/{id}/export.
type ExportResponse struct {
	Key string `json:"key"`
}

// ExportChart publishes a snapshot of a persisted chart to object storage.
func (h *Handlers) ExportChart(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid chart ID", errBadRequest))
		return
	}
	if h.cfg.Store == nil || h.cfg.Exporter == nil {
		h.writeError(w, r, fmt.Errorf("%w: export is not configured", errUnavailable))
		return
	}

	rec, err := h.cfg.Store.GetChart(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	key, err := h.cfg.Exporter.Export(r.Context(), rec)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExportResponse{Key: key})
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: request body exceeds %d bytes", errBadRequest, maxErr.Limit)
		}
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}

func (h *Handlers) chartDimensions(targets []string, dims *dimension.Collection) (*dimension.Collection, error) {
	if len(targets) == 0 {
		return dims, nil
	}
	return h.cfg.Schema.Collection(targets...)
}

// buildDataSet parses raw analyses and flattens the first one.
func (h *Handlers) buildDataSet(r *http.Request, raw json.RawMessage, dims *dimension.Collection) (dataset.Set, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: analyses are required", errBadRequest)
	}
	analyses, err := dataset.ParseAnalyses(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(analyses) > 1 {
		h.log.Warn("only the first analysis is charted", "path", r.URL.Path, "analyses", len(analyses))
	}

	typ := "unknown"
	if a := analyses.First(); a != nil {
		typ = string(a.Type)
	}
	set, err := h.datasets.FromAnalyses(analyses, dims)
	metrics.RecordDataSet(typ, err)
	return set, err
}

func (h *Handlers) generate(r *http.Request, typ chart.Type, dims *dimension.Collection, primary, secondary dataset.Set, mode chart.Mode) ([]*chart.Chart, error) {
	span := sentry.StartSpan(r.Context(), "chart.generate", sentry.WithDescription(fmt.Sprintf("%s %s", typ, dims.CSV())))
	defer span.Finish()

	start := time.Now()
	charts, err := h.cfg.Factory.FromDataSet(typ, dims, primary, secondary, mode)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		if errors.Is(err, chart.ErrInvalidArgument) || errors.Is(err, dimension.ErrIncompatibleDimensions) {
			span.Status = sentry.SpanStatusInvalidArgument
		}
		return nil, err
	}
	span.Status = sentry.SpanStatusOK
	metrics.RecordCharts(string(typ), string(mode), len(charts), time.Since(start))
	return charts, nil
}

func unsavedResponse(charts []*chart.Chart) (GenerateResponse, error) {
	out := make([]GeneratedChart, len(charts))
	for i, c := range charts {
		data, err := json.Marshal(c)
		if err != nil {
			return GenerateResponse{}, err
		}
		out[i] = GeneratedChart{Rank: i, Chart: data}
	}
	return GenerateResponse{Charts: out}, nil
}

func savedCharts(recs []*store.ChartRecord) []GeneratedChart {
	out := make([]GeneratedChart, len(recs))
	for i, rec := range recs {
		out[i] = GeneratedChart{ID: &rec.ID, Rank: rec.Rank, Chart: rec.Data}
	}
	return out
}
