package registration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// maxFormMemory caps how much of a multipart body stays in memory while
// parsing; larger file parts spill to temp files.
const maxFormMemory = 32 << 20

// ErrorResponse is the body for every failure outcome.
type ErrorResponse struct {
	Success   bool              `json:"success"`
	ErrorCode string            `json:"error_code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
}

// RegistrationApp defines what the service layer needs from the application.
type RegistrationApp interface {
	Register(ctx context.Context, idemKey string, form Form) (*Result, error)
}

// Service is the HTTP surface of the registration pipeline.
type Service struct {
	app RegistrationApp
}

func NewService(app RegistrationApp) *Service {
	return &Service{
		app: app,
	}
}

// RegisterRoutes mounts the service on mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/register", s.handleRegister)
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	idemKey := r.Header.Get("Idempotency-Key")

	// The request body is consumed exactly once, here.
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			ErrorCode: "INVALID_REQUEST",
			Message:   "request body must be a multipart form",
		})
		return
	}
	form, err := FormFromMultipart(r.MultipartForm)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			ErrorCode: "INVALID_REQUEST",
			Message:   "could not read uploaded files",
		})
		return
	}

	result, err := s.app.Register(r.Context(), idemKey, form)
	if err != nil {
		s.writeError(w, idemKey, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		// Replay is a success path, but callers can tell it apart.
		status = http.StatusConflict
	}
	writeJSON(w, status, result.Response)
}

func (s *Service) writeError(w http.ResponseWriter, idemKey string, err error) {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		resp := ErrorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   ve.Error(),
		}
		if first := ve.First(); first != nil {
			resp.Details = map[string]string{"field": first.Field}
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	var ce *ConstraintError
	if errors.As(err, &ce) {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			ErrorCode: "REGISTRATION_CONFLICT",
			Message:   "a registration with conflicting details already exists",
		})
		return
	}

	// Internal detail stays in the logs, correlated by idempotency key.
	log.Error().Err(err).Str("idempotency_key", idemKey).Msg("registration failed")
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		ErrorCode: "INTERNAL_ERROR",
		Message:   "registration could not be processed, please retry",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
