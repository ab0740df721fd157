package router

import (
	"github.com/oksasatya/go-auth-otp-service/internal/application"
	"github.com/oksasatya/go-auth-otp-service/internal/container"
	"github.com/oksasatya/go-auth-otp-service/internal/infrastructure/mongodb"
	handlers "github.com/oksasatya/go-auth-otp-service/internal/interface/http"
	"github.com/oksasatya/go-auth-otp-service/internal/router/modules"
)

func buildAuthModule() Module {
	cfg := container.GetConfig()
	repo := mongodb.NewUserRepository(container.GetMongo())

	// Keep the publisher nil when RabbitMQ is not wired so the service
	// skips enqueueing instead of calling through a typed nil.
	var pub application.Publisher
	if p := container.GetRabbitPub(); p != nil {
		pub = p
	}

	svc := application.NewAuthService(
		repo,
		container.GetJWT(),
		container.GetRedis(),
		container.GetLogger(),
		pub,
		container.GetES(),
		cfg.ESUsersIndex,
		cfg.MailSendEnabled,
		cfg.OTPTTL,
		cfg.OTPMaxAttempts,
	)

	handler := handlers.NewAuthHandler(svc, container.GetLogger())
	return modules.NewAuthModule(handler, container.GetJWT())
}

// InitModules initializes all application modules and registers them with
// the router registry. Called once during startup.
func InitModules(r *Registry) {
	r.Add(buildAuthModule())
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
