package http

import (
	"net/http"

	"github.com/duetapp/duet-api/internal/application/auth"
	coupleapp "github.com/duetapp/duet-api/internal/application/couple"
	"github.com/duetapp/duet-api/internal/application/registration"
	"github.com/duetapp/duet-api/internal/application/verification"
	"github.com/duetapp/duet-api/internal/config"
	"github.com/duetapp/duet-api/internal/transport/http/handler"
	appmiddleware "github.com/duetapp/duet-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10, applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	verificationSvc := verification.NewService(verification.ServiceDeps{
		TokenRepo:        deps.TokenRepo,
		CoupleRepo:       deps.CoupleRepo,
		PartnerRepo:      deps.PartnerRepo,
		VerifyTokenTTL:   cfg.VerifyTokenTTL,
		PasswordResetTTL: cfg.PasswordResetTokenTTL,
	})
	registrationSvc := registration.NewService(registration.ServiceDeps{
		CoupleRepo:    deps.CoupleRepo,
		PartnerRepo:   deps.PartnerRepo,
		Issuer:        verificationSvc,
		Mailer:        deps.Mailer,
		SMSSender:     deps.SMSSender,
		PublicBaseURL: cfg.PublicBaseURL,
		PendingTTL:    cfg.PendingRegistrationTTL,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		PartnerRepo:     deps.PartnerRepo,
		CoupleRepo:      deps.CoupleRepo,
		SessionRepo:     deps.SessionRepo,
		TokenRepo:       deps.TokenRepo,
		GoogleVerifier:  deps.GoogleVerifier,
		JWTProvider:     deps.JWTProvider,
		Mailer:          deps.Mailer,
		RefreshTokenDur: cfg.RefreshTokenDur,
		ResetTokenTTL:   cfg.PasswordResetTokenTTL,
		PublicBaseURL:   cfg.PublicBaseURL,
	})
	coupleSvc := coupleapp.NewService(coupleapp.ServiceDeps{
		CoupleRepo:  deps.CoupleRepo,
		PartnerRepo: deps.PartnerRepo,
		AvatarStore: deps.AvatarStore,
		S3Bucket:    cfg.S3BucketName,
	})

	healthH := handler.NewHealthHandler()
	registrationH := handler.NewRegistrationHandler(registrationSvc, verificationSvc, cfg.PendingRegistrationTTL)
	sessionH := handler.NewSessionHandler(authSvc)
	coupleH := handler.NewCoupleHandler(coupleSvc)
	pwH := handler.NewPasswordRecoveryHandler(authSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.With(sensitiveRL.Limit).Post("/registrations", registrationH.Initiate)
		r.Get("/registrations/{id}", registrationH.Status)
		// Challenge links arrive as GETs; the static segment wins over {id}.
		r.With(sensitiveRL.Limit).Get("/registrations/verify", registrationH.Verify)
		r.With(sensitiveRL.Limit).Post("/registrations/verify", registrationH.Verify)
		r.With(sensitiveRL.Limit).Post("/registrations/{id}/resend", registrationH.Resend)
		r.With(sensitiveRL.Limit).Post("/registrations/complete", registrationH.Complete)

		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/google", sessionH.GoogleLogin)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/password-recovery/{action}", pwH.Action)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.List)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/couples/{id}", coupleH.Get)
			r.Put("/couples/{id}", coupleH.Update)
			r.Post("/couples/{id}/avatar", coupleH.UploadAvatar)
		})
	})

	return r
}
