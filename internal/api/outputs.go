package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/pulsegrid-core/internal/actiontable"
)

// digitalRequest is the request body for PUT /outputs/digital.
type digitalRequest struct {
	Value uint32 `json:"value"`
}

// analogRequest is the request body for PUT /outputs/analog/{channel}.
type analogRequest struct {
	Value float64 `json:"value"`
}

// triggerRequest is the request body for POST /outputs/trigger.
// Lines is the bitmask of digital lines to pulse; DurationMillis is how
// long they stay flipped before restoring.
type triggerRequest struct {
	Lines          uint32  `json:"lines"`
	DurationMillis float64 `json:"duration_ms"`
}

// handleGetOutputs reads the controller's current digital bitmask and
// analog channel values.
func (s *Server) handleGetOutputs(w http.ResponseWriter, r *http.Request) {
	digital, analog, err := s.exec.ReadOutputs(r.Context())
	if err != nil {
		s.writeExecError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": s.exec.DeviceID(),
		"digital":   digital,
		"analog":    analog,
	})
}

// handleSetDigital writes the full digital output bitmask immediately.
func (s *Server) handleSetDigital(w http.ResponseWriter, r *http.Request) {
	var req digitalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.exec.WriteDigital(r.Context(), req.Value); err != nil {
		s.writeExecError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": s.exec.DeviceID(),
		"digital":   req.Value,
	})
}

// handleMoveAnalog drives one analog channel to an absolute value
// immediately.
func (s *Server) handleMoveAnalog(w http.ResponseWriter, r *http.Request) {
	channel, err := strconv.Atoi(chi.URLParam(r, "channel"))
	if err != nil || channel < 0 || channel >= actiontable.AnalogChannels {
		writeBadRequest(w, "channel must be between 0 and "+strconv.Itoa(actiontable.AnalogChannels-1))
		return
	}

	var req analogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.exec.MoveAnalog(r.Context(), channel, req.Value); err != nil {
		s.writeExecError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": s.exec.DeviceID(),
		"channel":   channel,
		"value":     req.Value,
	})
}

// handleTrigger pulses the given digital lines for the requested
// duration, then restores the previous bitmask. The request blocks for
// the duration of the pulse.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Lines == 0 {
		writeBadRequest(w, "lines bitmask must be non-zero")
		return
	}
	if req.DurationMillis < 0 {
		writeBadRequest(w, "duration_ms must not be negative")
		return
	}

	dt := time.Duration(req.DurationMillis * float64(time.Millisecond))
	if err := s.exec.TriggerNow(r.Context(), req.Lines, dt); err != nil {
		s.writeExecError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id":   s.exec.DeviceID(),
		"lines":       req.Lines,
		"duration_ms": req.DurationMillis,
	})
}
