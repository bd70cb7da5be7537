package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/ledgerly/ledgerly-api/internal/crypto"
	"github.com/ledgerly/ledgerly-api/internal/metrics"
	"github.com/ledgerly/ledgerly-api/internal/middleware"
	"github.com/ledgerly/ledgerly-api/internal/model"
	"github.com/ledgerly/ledgerly-api/internal/service"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// HandleRegister handles POST /register. Credentials come from a JSON body,
// a form body or the query string.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if isJSON(r) {
		if err := decodeJSON(w, r, &req); err != nil {
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
			bindError(w, err)
			return
		}
	} else {
		if err := parseForm(w, r); err != nil {
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
			bindError(w, err)
			return
		}
		req.Email = r.Form.Get("email")
		req.Password = r.Form.Get("password")
	}

	if err := validateStruct(req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		bindError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailRequired),
			errors.Is(err, service.ErrPasswordRequired),
			errors.Is(err, crypto.ErrPasswordTooLong):
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		case errors.Is(err, service.ErrEmailTaken):
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
			writeJSON(w, http.StatusConflict, errorResponse(err.Error()))
		default:
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
			hlog.FromRequest(r).Error().Err(err).Msg("register failed")
			internalError(w)
		}
		return
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	hlog.FromRequest(r).Info().Int64("user_id", user.ID).Msg("user registered")
	writeJSON(w, http.StatusCreated, model.RegisterResponse{
		Message: "User created successfully",
		User:    user,
	})
}

// loginBody accepts either "username" (OAuth2 password form) or "email".
type loginBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if isJSON(r) {
		if err := decodeJSON(w, r, &body); err != nil {
			bindError(w, err)
			return
		}
	} else {
		if err := parseForm(w, r); err != nil {
			bindError(w, err)
			return
		}
		body.Username = r.PostForm.Get("username")
		body.Email = r.PostForm.Get("email")
		body.Password = r.PostForm.Get("password")
	}

	req := model.LoginRequest{Username: body.Username, Password: body.Password}
	if req.Username == "" {
		req.Username = body.Email
	}
	if err := validateStruct(req); err != nil {
		bindError(w, err)
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			writeJSON(w, http.StatusUnauthorized, errorResponse(err.Error()))
			return
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		hlog.FromRequest(r).Error().Err(err).Msg("login failed")
		internalError(w)
		return
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, resp)
}

// HandleMe handles GET /me.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("not authenticated"))
		return
	}

	writeJSON(w, http.StatusOK, identity)
}
