package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"recovery-service/internal/config"
	"recovery-service/internal/service"
	"recovery-service/internal/util"
)

// AccountHandler handles account provisioning requests. These routes
// are gateway-internal; the public marketplace signup lives elsewhere
// and calls through here.
type AccountHandler struct {
	accountService *service.AccountService
	cfg            *config.Config
	logger         *zap.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService *service.AccountService, cfg *config.Config, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		cfg:            cfg,
		logger:         logger,
	}
}

// RegisterRoutes registers account routes
func (h *AccountHandler) RegisterRoutes(router chi.Router) {
	router.Route("/users", func(r chi.Router) {
		r.Post("/", h.CreateAccount)
	})
}

// CreateAccount provisions a new account
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req service.AccountCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, service.ErrInvalidInput, "Invalid request body")
		return
	}

	user, err := h.accountService.CreateAccount(ctx, &req, h.cfg.Recovery.MinPasswordLength)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, service.ErrInvalidInput) || errors.Is(err, service.ErrWeakPassword) {
			statusCode = http.StatusBadRequest
		}
		h.respondWithError(w, statusCode, err, "Failed to create account")
		return
	}

	h.respondWithJSON(w, http.StatusCreated, successResponse(map[string]interface{}{
		"user_id": user.UserID,
	}, "Account created"))
	h.logger.Info("Account created via HTTP",
		util.String("user_id", user.UserID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "CreateAccount"))
}

func (h *AccountHandler) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

func (h *AccountHandler) respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	h.logger.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	h.respondWithJSON(w, statusCode, errorResponse(err, message))
}
