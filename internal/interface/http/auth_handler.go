package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-otp-service/internal/application"
	"github.com/oksasatya/go-auth-otp-service/pkg/response"
	"github.com/oksasatya/go-auth-otp-service/pkg/validation"
)

type AuthHandler struct {
	Svc    *application.AuthService
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type requestOTPRequest struct {
	Email string `json:"email" binding:"required"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// Register POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "All fields are required", validation.ToDetails(err))
		return
	}
	if !validation.IsValidEmail(req.Email) {
		response.Error(c, http.StatusBadRequest, "Invalid email format")
		return
	}
	if !validation.IsValidPassword(req.Password) {
		response.Error(c, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	u, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, application.ErrEmailTaken) {
			response.Error(c, http.StatusBadRequest, "Email already registered")
			return
		}
		h.logError(c, "registration failed", err)
		response.ErrorWithDetails(c, http.StatusInternalServerError, "Registration failed", "internal error")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully. Welcome email sent.",
		"user":    u,
	})
}

// Login POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "Email and password are required", validation.ToDetails(err))
		return
	}
	if !validation.IsValidEmail(req.Email) {
		response.Error(c, http.StatusBadRequest, "Invalid email format")
		return
	}

	u, token, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logError(c, "login failed", err)
		response.ErrorWithDetails(c, http.StatusInternalServerError, "Login failed", "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": u})
}

// RequestOTP POST /request-otp
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req requestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "Email is required", validation.ToDetails(err))
		return
	}

	if err := h.Svc.RequestOTP(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, "User not found")
			return
		}
		h.logError(c, "request otp failed", err)
		response.ErrorWithDetails(c, http.StatusInternalServerError, "Failed to send OTP", "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to your email"})
}

// VerifyOTP POST /verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "Email and OTP are required", validation.ToDetails(err))
		return
	}

	u, token, err := h.Svc.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, "User not found")
		case errors.Is(err, application.ErrInvalidOrExpiredOTP):
			response.Error(c, http.StatusBadRequest, "Invalid or expired OTP")
		case errors.Is(err, application.ErrTooManyOTPAttempts):
			response.Error(c, http.StatusBadRequest, "Too many attempts, request a new OTP")
		default:
			h.logError(c, "verify otp failed", err)
			response.ErrorWithDetails(c, http.StatusInternalServerError, "OTP verification failed", "internal error")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    u,
	})
}

// DailyRegistrations GET /getDailyUserRegistrations (bearer gate)
func (h *AuthHandler) DailyRegistrations(c *gin.Context) {
	data, err := h.Svc.DailyRegistrations(c.Request.Context())
	if err != nil {
		h.logError(c, "daily registrations failed", err)
		response.ErrorWithDetails(c, http.StatusInternalServerError, "Failed to fetch registrations", "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// Search GET /users/search?q=...&size=... (bearer gate)
func (h *AuthHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error(c, http.StatusBadRequest, "q is required")
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		h.logError(c, "user search failed", err)
		response.ErrorWithDetails(c, http.StatusInternalServerError, "Search failed", "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": hits})
}

func (h *AuthHandler) logError(c *gin.Context, msg string, err error) {
	if h.Logger == nil {
		return
	}
	h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(msg)
}
