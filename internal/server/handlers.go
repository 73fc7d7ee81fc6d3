package server

import (
	"context"
	"net/http"

	"github.com/unclealek/SmartHome/internal/poller"
)

// LightRequest is the body of POST /api/light.
type LightRequest struct {
	On *bool `json:"on"`
}

// PollResponse wraps the state returned by POST /api/poll.
type PollResponse struct {
	Ran   bool         `json:"ran"`
	State poller.State `json:"state"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.ctrl.State())
}

// handlePoll runs a poll through the overlap policy. Ran is false when the
// policy dropped it. The poll feeds every subscriber, so a client that
// disconnects does not cancel it.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	st, ran := s.ctrl.Tick(context.WithoutCancel(r.Context()))
	writeJSON(w, r, http.StatusOK, PollResponse{Ran: ran, State: st})
}

func (s *Server) handleLight(w http.ResponseWriter, r *http.Request) {
	var req LightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidJSON, err.Error())
		return
	}
	if req.On == nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidJSON, `field "on" is required`)
		return
	}

	if err := s.ctrl.SetLight(r.Context(), *req.On); err != nil {
		writeError(w, r, http.StatusBadGateway, codeDeviceFailure, poller.LightFailedNotice)
		return
	}
	writeJSON(w, r, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.ResetMode(r.Context()); err != nil {
		writeError(w, r, http.StatusBadGateway, codeDeviceFailure, poller.ResetFailedNotice)
		return
	}
	writeJSON(w, r, http.StatusOK, s.ctrl.State())
}
