package controllers

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PulseFox/internal/pkg/auth"
	"github.com/ManuelReschke/PulseFox/internal/pkg/env"
	"github.com/ManuelReschke/PulseFox/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/PulseFox/internal/pkg/statistics"
	"github.com/ManuelReschke/PulseFox/internal/pkg/usercontext"
)

var validate = validator.New()

type registerRequest struct {
	Name         string `json:"name" validate:"required,min=3,max=150"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	CaptchaToken string `json:"captcha_token"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// HandleRegister creates an unverified account and triggers the first
// verification email.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	if env.GetEnv("HCAPTCHA_SECRET", "") != "" {
		if ok, err := hcaptcha.Verify(req.CaptchaToken); !ok {
			log.Warnf("captcha verification failed: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "captcha_failed", "message": "Captcha verification failed"})
		}
	}

	user, err := getServices().account.Register(req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailAlreadyRegistered) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email_already_registered", "message": "An account with this email already exists"})
		}
		var valErrs validator.ValidationErrors
		if errors.As(err, &valErrs) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
		}
		log.Errorf("registration failed: %v", err)
		return internalError(c)
	}

	go statistics.UpdateStatisticsCache()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"created_at": user.CreatedAt.UTC().Format(time.RFC3339),
		"message":    "Registration successful. Please check your inbox to verify your email address.",
	})
}

// HandleLogin verifies credentials and returns a token pair.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	pair, user, err := getServices().account.Login(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailNotVerified) && errors.Is(err, auth.ErrRateLimited):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "email_not_verified",
				"message": "Email address not verified. Too many verification emails were requested, please try again later.",
			})
		case errors.Is(err, auth.ErrEmailNotVerified):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "email_not_verified",
				"message": "Email address not verified. A new verification email has been sent.",
			})
		case errors.Is(err, auth.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_credentials", "message": "Invalid email or password"})
		}
		log.Errorf("login failed: %v", err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user": fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

// HandleRefresh rotates a refresh token for a fresh pair. A reused token
// revokes the whole family.
func HandleRefresh(c *fiber.Ctx) error {
	var req refreshRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	pair, err := getServices().account.Refresh(req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenReuseDetected):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "token_reuse_detected",
				"message": "Refresh token reuse detected. All sessions have been revoked, please log in again.",
			})
		case errors.Is(err, auth.ErrTokenExpired):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "token_expired", "message": "Refresh token expired, please log in again"})
		case errors.Is(err, auth.ErrInvalidToken):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_token", "message": "Invalid refresh token"})
		}
		log.Errorf("token refresh failed: %v", err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// HandleLogout revokes the presented refresh token.
func HandleLogout(c *fiber.Ctx) error {
	var req refreshRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	revoked, err := getServices().account.Logout(req.RefreshToken)
	if err != nil {
		log.Errorf("logout failed: %v", err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{"revoked": revoked})
}

// HandleLogoutAll revokes every session of the authenticated user.
func HandleLogoutAll(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}

	if err := getServices().account.LogoutAll(userID); err != nil {
		log.Errorf("logout-all failed for user %d: %v", userID, err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{"message": "All sessions revoked"})
}

// HandleVerifyEmail redeems a verification token from the email link.
func HandleVerifyEmail(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Missing token"})
	}

	user, err := getServices().account.VerifyEmail(token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailAlreadyVerified):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email_already_verified", "message": "Email address is already verified"})
		case errors.Is(err, auth.ErrTokenExpired):
			return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "token_expired", "message": "Verification link expired, please request a new one"})
		case errors.Is(err, auth.ErrInvalidToken):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_token", "message": "Invalid verification link"})
		}
		log.Errorf("email verification failed: %v", err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"message": "Email address verified. Your 14-day Professional trial has started.",
		"email":   user.Email,
	})
}

// HandleResendVerification re-issues the verification email. The response is
// identical whether or not the address is registered.
func HandleResendVerification(c *fiber.Ctx) error {
	var req emailRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	if err := getServices().account.ResendVerification(req.Email); err != nil {
		log.Errorf("resend verification failed: %v", err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{"message": "If the address is registered and unverified, a verification email has been sent."})
}

// HandleForgotPassword issues a password reset email. The response is
// identical whether or not the address is registered.
func HandleForgotPassword(c *fiber.Ctx) error {
	var req emailRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	if err := getServices().account.ForgotPassword(req.Email); err != nil {
		log.Errorf("forgot password failed: %v", err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{"message": "If the address is registered, a password reset email has been sent."})
}

// HandleResetPassword redeems a reset token and sets the new password. All
// refresh tokens of the user are revoked.
func HandleResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	if _, err := getServices().account.ResetPassword(req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "token_expired", "message": "Reset link expired, please request a new one"})
		case errors.Is(err, auth.ErrInvalidToken):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_token", "message": "Invalid reset link"})
		}
		log.Errorf("password reset failed: %v", err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{"message": "Password updated. Please log in with your new password."})
}

// HandleGetAccount returns the authenticated user's account with trial state.
func HandleGetAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}

	repo := repositoryUser()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		log.Errorf("account lookup failed for user %d: %v", userCtx.UserID, err)
		return internalError(c)
	}

	trial, err := getServices().subs.GetTrialInfo(userCtx.UserID)
	if err != nil {
		log.Errorf("trial info lookup failed for user %d: %v", userCtx.UserID, err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"id":             account.ID,
		"name":           account.Name,
		"email":          account.Email,
		"status":         account.Status,
		"email_verified": account.EmailVerified,
		"created_at":     account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at":  formatTimePtr(account.LastLoginAt),
		"trial":          trial,
	})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
