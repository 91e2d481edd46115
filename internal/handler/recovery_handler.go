package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"recovery-service/internal/models"
	"recovery-service/internal/service"
	"recovery-service/internal/util"
)

// RecoveryHandler handles HTTP requests for the account recovery flow
type RecoveryHandler struct {
	recoveryService *service.RecoveryService
	logger          *zap.Logger
}

// NewRecoveryHandler creates a new recovery handler
func NewRecoveryHandler(recoveryService *service.RecoveryService, logger *zap.Logger) *RecoveryHandler {
	return &RecoveryHandler{
		recoveryService: recoveryService,
		logger:          logger,
	}
}

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// successResponse creates a successful response
func successResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

// errorResponse creates an error response
func errorResponse(err error, message string) Response {
	return Response{
		Success: false,
		Error:   err.Error(),
		Message: message,
	}
}

// VerifyRequest is the body for the answer verification step
type VerifyRequest struct {
	Email   string                    `json:"email"`
	Answers []models.AnswerSubmission `json:"answers"`
}

// ResetRequest is the body for the token redemption step
type ResetRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// SaveQuestionsRequest is the body for replacing a user's question set
type SaveQuestionsRequest struct {
	Questions []models.AnswerSubmission `json:"questions"`
}

// RegisterRoutes registers all recovery routes
func (h *RecoveryHandler) RegisterRoutes(router chi.Router) {
	router.Route("/recovery", func(r chi.Router) {
		r.Get("/questions", h.GetQuestions)
		r.Post("/verify", h.VerifyAnswers)
		r.Post("/reset", h.ResetPassword)
	})

	// Caller identity comes from the X-User-ID header set by the
	// gateway after session validation.
	router.Put("/users/{userID}/security-questions", h.SaveQuestions)
}

// GetQuestions returns the security questions for an email address. An
// unknown address yields an empty list with the same 200 as a known one.
func (h *RecoveryHandler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	email := r.URL.Query().Get("email")
	if email == "" {
		h.respondWithError(w, http.StatusBadRequest, service.ErrInvalidInput, "email query parameter required")
		return
	}

	questions, err := h.recoveryService.GetSecurityQuestions(ctx, email, clientIP(r))
	if err != nil {
		h.respondWithError(w, h.getStatusCode(err), err, "Unable to fetch security questions")
		return
	}

	h.respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"questions": questions,
	}, ""))
	h.logger.Debug("Security questions fetched via HTTP",
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "GetQuestions"))
}

// VerifyAnswers checks the submitted answers and returns a single-use
// verification token on success.
func (h *RecoveryHandler) VerifyAnswers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, service.ErrInvalidInput, "Invalid request body")
		return
	}

	tok, err := h.recoveryService.VerifySecurityAnswers(ctx, req.Email, req.Answers, clientIP(r))
	if err != nil {
		h.respondWithError(w, h.getStatusCode(err), h.publicError(err), h.publicMessage(err))
		return
	}

	h.respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"verification_token": tok,
	}, "Security answers verified"))
	h.logger.Info("Security answers verified via HTTP",
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "VerifyAnswers"))
}

// ResetPassword redeems a verification token and replaces the credential.
func (h *RecoveryHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, service.ErrInvalidInput, "Invalid request body")
		return
	}

	err := h.recoveryService.ResetPasswordWithVerification(ctx, req.Email, req.Token, req.NewPassword, clientIP(r))
	if err != nil {
		h.respondWithError(w, h.getStatusCode(err), h.publicError(err), h.publicMessage(err))
		return
	}

	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "Password reset successfully"))
	h.logger.Info("Password reset via HTTP",
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "ResetPassword"))
}

// SaveQuestions replaces the authenticated user's question set.
func (h *RecoveryHandler) SaveQuestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	targetUserID := chi.URLParam(r, "userID")
	callerUserID := r.Header.Get("X-User-ID")
	if callerUserID == "" {
		h.respondWithError(w, http.StatusUnauthorized, service.ErrUnauthorized, "Authentication required")
		return
	}

	var req SaveQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, service.ErrInvalidInput, "Invalid request body")
		return
	}

	err := h.recoveryService.SaveSecurityQuestions(ctx, callerUserID, targetUserID, req.Questions, clientIP(r))
	if err != nil {
		h.respondWithError(w, h.getStatusCode(err), err, "Failed to save security questions")
		return
	}

	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "Security questions saved"))
	h.logger.Info("Security questions saved via HTTP",
		util.String("user_id", targetUserID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "SaveQuestions"))
}

// publicError collapses internal distinctions so responses stay uniform.
// A token that exists but belongs to another account reads the same as
// one that never existed.
func (h *RecoveryHandler) publicError(err error) error {
	if errors.Is(err, service.ErrTokenMismatch) || errors.Is(err, service.ErrUserMismatch) {
		return service.ErrTokenInvalid
	}
	return err
}

// publicMessage picks the fixed user-facing message for recovery errors.
func (h *RecoveryHandler) publicMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrRateLimited):
		return "Too many verification attempts. Please try again later."
	case errors.Is(err, service.ErrVerificationFailed):
		return "Security answers incorrect"
	case errors.Is(err, service.ErrTokenInvalid),
		errors.Is(err, service.ErrTokenMismatch),
		errors.Is(err, service.ErrUserMismatch):
		return "Verification token invalid or expired"
	case errors.Is(err, service.ErrWeakPassword):
		return "Password does not meet requirements"
	case errors.Is(err, service.ErrInvalidInput):
		return "Invalid request"
	default:
		return "Request failed"
	}
}

// respondWithJSON sends a JSON response
func (h *RecoveryHandler) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

// respondWithError sends an error response
func (h *RecoveryHandler) respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	h.logger.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	h.respondWithJSON(w, statusCode, errorResponse(err, message))
}

// getStatusCode determines the appropriate HTTP status code for an error
func (h *RecoveryHandler) getStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrVerificationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrTokenInvalid),
		errors.Is(err, service.ErrTokenMismatch),
		errors.Is(err, service.ErrUserMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// clientIP extracts the caller address, relying on middleware.RealIP to
// have rewritten RemoteAddr behind proxies.
func clientIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}
