package http

import (
	"net/http"
	"strings"
)

type generateSecretRequest struct {
	Username string `json:"username"`
}

type registerRequest struct {
	Username   string `json:"username"`
	OTPSecret  string `json:"otp_secret"`
	OTPExample string `json:"otp_example"`
}

type loginRequest struct {
	Username string `json:"username"`
	OTP      string `json:"otp"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type decodedUser struct {
	Username  string `json:"username"`
	Kind      string `json:"type"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func (s *Server) handleGenerateSecret(w http.ResponseWriter, r *http.Request) {
	var req generateSecretRequest
	if !decodeBody(w, r, &req) {
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	secret, err := s.authSvc.GenerateSecret(r.Context(), username)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, secret)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.OTPSecret == "" || req.OTPExample == "" {
		writeError(w, http.StatusBadRequest, "username, otp_secret and otp_example are required")
		return
	}
	pair, err := s.authSvc.Register(r.Context(), username, req.OTPSecret, req.OTPExample)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.OTP == "" {
		writeError(w, http.StatusBadRequest, "username and otp are required")
		return
	}
	pair, err := s.authSvc.Login(r.Context(), strings.TrimSpace(req.Username), req.OTP)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}
	pair, err := s.authSvc.Refresh(r.Context(), req.Refresh)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// handleDecode returns the verified claims of the presented access
// token; internal endpoint the frontend uses to check auth state.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, decodedUser{
		Username:  claims.Username,
		Kind:      string(claims.Kind),
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}
