package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/worldgate/internal/api/apierr"
	"github.com/mcoot/worldgate/internal/api/request"
	"github.com/mcoot/worldgate/internal/api/response"
	"github.com/mcoot/worldgate/internal/dependencies/clock"
	"github.com/mcoot/worldgate/internal/services/auth"
)

// AccountHandler handles account and token endpoints
type AccountHandler struct {
	authService *auth.Service
	clock       clock.Clock
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(authService *auth.Service, clock clock.Clock) *AccountHandler {
	return &AccountHandler{
		authService: authService,
		clock:       clock,
	}
}

// Register handles POST /api/v1/accounts
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("password is required"))
		return
	}

	account, err := h.authService.RegisterAccount(r.Context(), req.Username, req.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.Created(w, response.AccountFromModel(account))
}

// IssueToken handles POST /api/v1/tokens
func (h *AccountHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req request.IssueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" || req.Password == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("username and password are required"))
		return
	}

	token, err := h.authService.IssueToken(r.Context(), req.Username, req.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.Created(w, response.Token{
		Token:     token,
		ExpiresAt: h.clock.Now().Add(h.authService.TokenTTL()),
	})
}

// RevokeToken handles DELETE /api/v1/tokens/{token}
func (h *AccountHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if err := h.authService.RevokeToken(r.Context(), token); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}
