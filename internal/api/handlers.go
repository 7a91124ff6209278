package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/user/armory-card/internal/command"
	"github.com/user/armory-card/internal/domain"
	"go.uber.org/zap"
)

// Interaction types understood by the interactions endpoint.
const (
	InteractionPing    = 1
	InteractionCommand = 2

	responsePong     = 1
	responseDeferred = 5
)

// InteractionRequest is a chat-platform command invocation whose reply is
// posted later to FollowupURL.
type InteractionRequest struct {
	Type        int    `json:"type"`
	Command     string `json:"command"`
	Character   string `json:"character"`
	Realm       string `json:"realm,omitempty"`
	FollowupURL string `json:"followupUrl"`
}

type interactionResponse struct {
	Type int `json:"type"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req domain.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reply, err := s.commands.Execute(r.Context(), chi.URLParam(r, "command"), req)
	if err != nil {
		s.respondWithFailure(w, req, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, reply)
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	req := domain.CommandRequest{
		Character: chi.URLParam(r, "character"),
		Realm:     chi.URLParam(r, "realm"),
	}

	reply, err := s.commands.Execute(r.Context(), chi.URLParam(r, "command"), req)
	if err != nil {
		s.respondWithFailure(w, req, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(reply.Image)))
	w.Header().Set("Content-Disposition", `inline; filename="`+reply.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(reply.Image); err != nil {
		s.logger.Debug("write card", zap.Error(err))
	}
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	var in InteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch in.Type {
	case InteractionPing:
		s.respondWithJSON(w, http.StatusOK, interactionResponse{Type: responsePong})
		return
	case InteractionCommand:
	default:
		s.respondWithError(w, http.StatusBadRequest, "Unsupported interaction type")
		return
	}

	if u, err := url.ParseRequestURI(in.FollowupURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		s.respondWithError(w, http.StatusBadRequest, "Invalid followup URL")
		return
	}

	job := command.Job{
		Command:     in.Command,
		Request:     domain.CommandRequest{Character: in.Character, Realm: in.Realm},
		FollowupURL: in.FollowupURL,
	}
	if err := s.queue.Submit(job); err != nil {
		s.logger.Warn("interaction rejected", zap.String("command", in.Command), zap.Error(err))
		s.respondWithError(w, http.StatusServiceUnavailable, "Too many pending commands, try again shortly")
		return
	}
	s.respondWithJSON(w, http.StatusAccepted, interactionResponse{Type: responseDeferred})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string, len(s.checks))
	healthy := true
	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			healthStatus[name] = "unhealthy"
			healthy = false
			s.logger.Error("health check failed", zap.String("dependency", name), zap.Error(err))
			continue
		}
		healthStatus[name] = "healthy"
	}

	if !healthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// statusFor maps a command error to an HTTP status.
func statusFor(err error) int {
	var timeoutErr *domain.TimeoutError
	var fetchErr *domain.UpstreamFetchError
	var formatErr *domain.UpstreamFormatError
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, command.ErrMissingCharacter), errors.Is(err, command.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &fetchErr), errors.As(err, &formatErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// --- Helper Functions ---

func (s *Server) respondWithFailure(w http.ResponseWriter, req domain.CommandRequest, err error) {
	s.respondWithError(w, statusFor(err), s.commands.FailureReply(req, err).Content)
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshal response", zap.Error(err))
		code, response = http.StatusInternalServerError, []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
