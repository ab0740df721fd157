package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-auth-otp-service/internal/container"
	handlers "github.com/oksasatya/go-auth-otp-service/internal/interface/http"
	"github.com/oksasatya/go-auth-otp-service/internal/interface/middleware"
	"github.com/oksasatya/go-auth-otp-service/pkg/helpers"
)

// AuthModule wires the auth handlers into routes.
// Public: POST /register, /login, /request-otp, /verify-otp
// Protected (bearer gate): GET /getDailyUserRegistrations, GET /users/search
type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Public endpoints with per-IP rate limits; the OTP pair gets a
	// tighter per-path budget since codes are guessable.
	registerLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP(), nil)
	otpLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/register", registerLimiter, m.Handler.Register)
	rg.POST("/login", loginLimiter, m.Handler.Login)
	rg.POST("/request-otp", otpLimiter, m.Handler.RequestOTP)
	rg.POST("/verify-otp", otpLimiter, m.Handler.VerifyOTP)

	// Protected
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), nil))
	{
		auth.GET("/getDailyUserRegistrations", m.Handler.DailyRegistrations)
		auth.GET("/users/search", m.Handler.Search)
	}
}
