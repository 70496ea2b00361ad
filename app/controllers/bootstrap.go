package controllers

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PulseFox/app/repository"
	"github.com/ManuelReschke/PulseFox/internal/pkg/audit"
	"github.com/ManuelReschke/PulseFox/internal/pkg/auth"
	"github.com/ManuelReschke/PulseFox/internal/pkg/clock"
	"github.com/ManuelReschke/PulseFox/internal/pkg/env"
	"github.com/ManuelReschke/PulseFox/internal/pkg/mail"
	"github.com/ManuelReschke/PulseFox/internal/pkg/quota"
	"github.com/ManuelReschke/PulseFox/internal/pkg/ratelimit"
	"github.com/ManuelReschke/PulseFox/internal/pkg/security"
	"github.com/ManuelReschke/PulseFox/internal/pkg/subscription"
)

// services bundles the wired service layer shared by all controllers.
type services struct {
	account *auth.AccountService
	tokens  *auth.TokenService
	subs    *subscription.Service
	quota   *quota.Service
	bearer  *security.BearerCodec
}

var (
	svc     *services
	svcOnce sync.Once
)

// getServices wires the service layer once from the global repository
// factory and environment configuration.
func getServices() *services {
	svcOnce.Do(func() {
		repos := repository.GetGlobalRepositories()
		clk := clock.SystemClock{}
		sink := audit.NewLogSink()

		secret := env.GetEnv("JWT_SECRET", "")
		codec, err := security.NewBearerCodec(secret, env.GetEnvDuration("ACCESS_TOKEN_TTL", security.DefaultAccessTokenTTL))
		if err != nil {
			log.Fatalf("bearer codec setup failed: %v", err)
		}

		subs := subscription.NewService(repos.Subscription, sink, clk)
		quotaSvc := quota.NewService(subs, repos.Usage, sink, clk)
		tokens := auth.NewTokenService(repos.RefreshToken, repos.User, codec, sink, clk)
		verification := auth.NewVerificationService(repos.User, tokens, subs, mail.NewSMTPMailer(), sink, clk)
		limiter := ratelimit.NewLimiter(repos.RateLimit, clk)
		account := auth.NewAccountService(repos.User, tokens, verification, limiter, sink, clk)

		svc = &services{
			account: account,
			tokens:  tokens,
			subs:    subs,
			quota:   quotaSvc,
			bearer:  codec,
		}
	})
	return svc
}

// GetBearerCodec exposes the shared codec for the auth middleware.
func GetBearerCodec() *security.BearerCodec {
	return getServices().bearer
}

// GetQuotaService exposes the quota engine for the usage middleware.
func GetQuotaService() *quota.Service {
	return getServices().quota
}
