package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/KaramelBytes/tabloom-cli/internal/clean"
	"github.com/KaramelBytes/tabloom-cli/internal/impute"
	"github.com/KaramelBytes/tabloom-cli/internal/schema"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// ProcessRequest is the body of POST /api/v1/process.
type ProcessRequest struct {
	Headers []string    `json:"headers" validate:"dive,required"`
	Rows    []table.Row `json:"rows"`
}

// ImputeRequest is the body of POST /api/v1/impute.
type ImputeRequest struct {
	Data       []table.Row       `json:"data"`
	Columns    []schema.Column   `json:"columns" validate:"dive"`
	Strategies []impute.Strategy `json:"strategies" validate:"dive"`
}

// EDARequest is the body of POST /api/v1/eda.
type EDARequest struct {
	Data    []table.Row     `json:"data"`
	Columns []schema.Column `json:"columns" validate:"dive"`
}

// ErrResponse is the JSON error body.
type ErrResponse struct {
	Err    string `json:"error"`
	Status int    `json:"status"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Status)
	return nil
}

func errResponse(status int, err error) render.Renderer {
	return &ErrResponse{Err: err.Error(), Status: status}
}

// decode reads and validates a JSON body. It writes the error response itself
// and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = render.Render(w, r, errResponse(http.StatusRequestEntityTooLarge,
				fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)))
			return false
		}
		_ = render.Render(w, r, errResponse(http.StatusBadRequest, fmt.Errorf("malformed JSON: %w", err)))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		_ = render.Render(w, r, errResponse(http.StatusBadRequest, fmt.Errorf("invalid request: %w", err)))
		return false
	}
	return true
}

func (s *Server) requestLog(r *http.Request) *slog.Logger {
	return s.log.With(slog.String("run_id", RunIDFrom(r.Context())))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Headers) == 0 && len(req.Rows) > 0 {
		_ = render.Render(w, r, errResponse(http.StatusBadRequest, errors.New("headers are required when rows are present")))
		return
	}
	out := clean.Process(req.Rows, req.Headers, clean.Options{Number: s.cfg.Number, Logger: s.requestLog(r)})
	s.cfg.Metrics.ObserveClean(out.OriginalRowCount, out.CleanedRowCount, out.QualityReport.DuplicateRows)
	render.JSON(w, r, out)
}

func (s *Server) handleImpute(w http.ResponseWriter, r *http.Request) {
	var req ImputeRequest
	if !s.decode(w, r, &req) {
		return
	}
	out := impute.Apply(req.Data, req.Columns, req.Strategies, impute.Options{Number: s.cfg.Number, Logger: s.requestLog(r)})
	for _, res := range out.Results {
		s.cfg.Metrics.ObserveImputation(string(res.Method), res.ImputedCount, res.Success)
	}
	render.JSON(w, r, out)
}

func (s *Server) handleEDA(w http.ResponseWriter, r *http.Request) {
	var req EDARequest
	if !s.decode(w, r, &req) {
		return
	}
	opt := s.cfg.EDA
	opt.Number = s.cfg.Number
	opt.Logger = s.requestLog(r)
	render.JSON(w, r, analysis.Analyze(req.Data, req.Columns, opt))
}
