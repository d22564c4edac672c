package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/arvandy/moodmate/internal/auth"
	"github.com/arvandy/moodmate/internal/middleware"
	"github.com/arvandy/moodmate/internal/models"
	"github.com/arvandy/moodmate/internal/services"
	"github.com/arvandy/moodmate/pkg/errors"
	"github.com/arvandy/moodmate/pkg/response"
)

// RefreshTokenCookie is the cookie carrying the refresh token.
const RefreshTokenCookie = "refreshToken"

// AuthHandler exposes the credential and session lifecycle over HTTP.
type AuthHandler struct {
	auth        *services.AuthService
	tokens      *iauth.TokenService
	frontendURL string
}

// NewAuthHandler wires the auth endpoints. frontendURL is where password
// reset links land after token consumption.
func NewAuthHandler(auth *services.AuthService, tokens *iauth.TokenService, frontendURL string) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		tokens:      tokens,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=120"`
	Password string `json:"password" validate:"required,min=8,password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type changePasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.Register(requestContext(c), services.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Registration successful, please check your email", user)
}

// Login handles POST /api/v1/auth/login. On success the token pair is both
// returned in the body and set as httpOnly cookies.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setAuthCookies(c, result.AccessToken, result.RefreshToken)

	response.Success(c, http.StatusOK, "Login successful", gin.H{
		"user":   result.User,
		"tokens": tokenResponse{AccessToken: result.AccessToken, RefreshToken: result.RefreshToken},
	})
}

// VerifyEmail handles GET /api/v1/auth/verify-email?token&email. The endpoint
// services both token kinds: password reset tokens redirect to the frontend
// change-password form instead of completing verification.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	email := strings.TrimSpace(c.Query("email"))
	if token == "" || email == "" {
		response.Error(c, errors.NewBadRequest("token and email are required"))
		return
	}

	result, err := h.auth.VerifyEmail(requestContext(c), email, token)
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Kind == models.KindPasswordReset {
		c.Redirect(http.StatusFound, h.changePasswordURL(email))
		return
	}

	response.Success(c, http.StatusOK, "Email verified successfully", nil)
}

// ResendVerification handles POST /api/v1/auth/resend-verification-email.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ResendVerification(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Verification email sent", nil)
}

// ResetPassword handles POST /api/v1/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.RequestPasswordReset(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Password reset email sent", nil)
}

// ChangePassword handles POST /api/v1/auth/change-password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ChangePassword(requestContext(c), req.Email, req.Password); err != nil {
		response.Error(c, err)
		return
	}

	h.clearAuthCookies(c)
	response.Success(c, http.StatusOK, "Password changed successfully", nil)
}

// RefreshToken handles POST /api/v1/auth/refresh-token. The refresh token is
// read from the cookie, the bearer header, or the JSON body, in that order.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token := h.refreshTokenFromRequest(c)
	if token == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	pair, err := h.auth.Refresh(requestContext(c), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setAuthCookies(c, pair.AccessToken, pair.RefreshToken)

	response.Success(c, http.StatusOK, "Token refreshed", tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := h.refreshTokenFromRequest(c)
	if token == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.auth.Logout(requestContext(c), token); err != nil {
		response.Error(c, err)
		return
	}

	h.clearAuthCookies(c)
	response.Success(c, http.StatusOK, "Logged out", nil)
}

// Me handles GET /api/v1/auth/me behind the Auth middleware.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	response.Success(c, http.StatusOK, "", user)
}

func (h *AuthHandler) refreshTokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(RefreshTokenCookie); err == nil {
		if token := strings.TrimSpace(cookie); token != "" {
			return token
		}
	}

	authz := c.GetHeader("Authorization")
	if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
		if token := strings.TrimSpace(authz[7:]); token != "" {
			return token
		}
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		return strings.TrimSpace(req.RefreshToken)
	}
	return ""
}

// Cookie lifetimes mirror the token TTLs.
func (h *AuthHandler) setAuthCookies(c *gin.Context, accessToken, refreshToken string) {
	secure := c.Request != nil && c.Request.TLS != nil
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AccessTokenCookie, accessToken,
		int(h.tokens.AccessTokenTTL().Seconds()), "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, refreshToken,
		int(h.tokens.RefreshTokenTTL().Seconds()), "/", "", secure, true)
}

func (h *AuthHandler) clearAuthCookies(c *gin.Context) {
	secure := c.Request != nil && c.Request.TLS != nil
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", "", secure, true)
}

func (h *AuthHandler) changePasswordURL(email string) string {
	base := h.frontendURL
	if base == "" {
		base = "http://localhost:3000"
	}
	return base + "/change-password?email=" + url.QueryEscape(email)
}
