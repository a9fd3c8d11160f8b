package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/pulsegrid-core/internal/actiontable"
	"github.com/nerrad567/pulsegrid-core/internal/compiler"
	"github.com/nerrad567/pulsegrid-core/internal/executor"
	"github.com/nerrad567/pulsegrid-core/internal/remote"
)

// runRow is the wire form of one action-table row.
type runRow struct {
	TimeMillis float64                             `json:"time_ms"`
	Handler    string                              `json:"handler,omitempty"`
	Digital    uint32                              `json:"digital"`
	Analog     [actiontable.AnalogChannels]float64 `json:"analog"`
}

// runRequest is the request body for POST /runs.
//
// Start and Stop select the half-open row range [start, stop); both
// default to the full table. RepDurationMillis pads each repetition to
// a fixed length on the legacy path.
type runRequest struct {
	Table             []runRow `json:"table"`
	Start             *int     `json:"start,omitempty"`
	Stop              *int     `json:"stop,omitempty"`
	NumReps           int      `json:"num_reps,omitempty"`
	RepDurationMillis *float64 `json:"rep_duration_ms,omitempty"`
}

// runSummary is the wire form of one run record.
type runSummary struct {
	ID            string    `json:"id"`
	DeviceID      string    `json:"device_id"`
	Generation    string    `json:"generation"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Rows          int       `json:"rows"`
	NumReps       int       `json:"num_reps"`
	DigitalEvents int       `json:"digital_events"`
	AnalogEvents  int       `json:"analog_events"`
	Violations    int       `json:"violations"`
	Aborted       bool      `json:"aborted"`
}

func toRunSummary(rec executor.RunRecord) runSummary {
	return runSummary{
		ID:            rec.ID,
		DeviceID:      rec.DeviceID,
		Generation:    string(rec.Generation),
		StartedAt:     rec.StartedAt,
		FinishedAt:    rec.FinishedAt,
		Rows:          rec.Rows,
		NumReps:       rec.NumReps,
		DigitalEvents: rec.DigitalEvents,
		AnalogEvents:  rec.AnalogEvents,
		Violations:    rec.Violations,
		Aborted:       rec.Aborted,
	}
}

// handleExecuteRun compiles and executes an action table, blocking
// until the controller reports completion, the run is aborted, or the
// request is cancelled.
func (s *Server) handleExecuteRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Table) == 0 {
		writeBadRequest(w, "table must not be empty")
		return
	}

	table := make(actiontable.Table, len(req.Table))
	for i, row := range req.Table {
		table[i] = actiontable.Row{
			TimeMillis: row.TimeMillis,
			Handler:    row.Handler,
			Digital:    row.Digital,
			Analog:     row.Analog,
		}
	}
	if err := table.Validate(); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	start := 0
	if req.Start != nil {
		start = *req.Start
	}
	stop := len(table)
	if req.Stop != nil {
		stop = *req.Stop
	}
	numReps := req.NumReps
	if numReps <= 0 {
		numReps = 1
	}

	if s.exec.Busy() {
		writeConflict(w, "a run is already in progress")
		return
	}

	rec, err := s.exec.Execute(r.Context(), table, start, stop, numReps, req.RepDurationMillis)
	if err != nil {
		s.writeExecError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "complete",
		"run_id":     rec.ID,
		"device_id":  s.exec.DeviceID(),
		"generation": string(s.exec.Generation()),
		"violations": rec.Violations,
		"aborted":    rec.Aborted,
	})
}

// handlePrepare readies the controller for an experiment: the
// notification target is re-registered and, on legacy controllers, the
// live digital state and analog positions are read into the carried
// baselines.
func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	if err := s.exec.Prepare(r.Context()); err != nil {
		s.writeExecError(w, err)
		return
	}

	state := s.exec.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "prepared",
		"device_id": s.exec.DeviceID(),
		"state": map[string]any{
			"digital":   state.Digital,
			"baselines": state.Baselines,
		},
	})
}

// handleAbort terminates the in-flight run, if any. The blocked
// /runs request returns as soon as the completion wait is released.
func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	s.exec.Abort(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "abort requested",
		"device_id": s.exec.DeviceID(),
	})
}

// handleStatus reports the controller identity and whether a run is
// in flight.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	state := s.exec.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id":  s.exec.DeviceID(),
		"generation": string(s.exec.Generation()),
		"busy":       s.exec.Busy(),
		"state": map[string]any{
			"digital":   state.Digital,
			"baselines": state.Baselines,
		},
	})
}

// handleListRuns returns recent run records, newest first.
// Query parameters: device_id (defaults to this core's controller),
// limit (default 50, capped at 200).
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeNotFound(w, "run log not configured")
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		deviceID = s.exec.DeviceID()
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.runs.ListRuns(r.Context(), deviceID, limit)
	if err != nil {
		s.logger.Error("failed to list runs", "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to list runs")
		return
	}

	summaries := make([]runSummary, len(records))
	for i, rec := range records {
		summaries[i] = toRunSummary(rec)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  summaries,
		"count": len(summaries),
	})
}

// writeExecError maps executor and transport errors to HTTP responses.
func (s *Server) writeExecError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, executor.ErrNotInitialized):
		writeConflict(w, "controller not initialized")
	case errors.Is(err, actiontable.ErrEmptySelection),
		errors.Is(err, actiontable.ErrUnordered),
		errors.Is(err, compiler.ErrInvalidRepDuration),
		errors.Is(err, compiler.ErrNoDigitalEvents):
		writeBadRequest(w, err.Error())
	case errors.Is(err, remote.ErrRequestTimeout):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, err.Error())
	case errors.Is(err, remote.ErrConnection), errors.Is(err, remote.ErrNotConnected):
		writeError(w, http.StatusBadGateway, ErrCodeController, err.Error())
	default:
		s.logger.Error("run execution failed", "error", err)
		writeInternalError(w, "run execution failed")
	}
}
