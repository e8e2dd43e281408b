package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cubecart/core/internal/access"
	"github.com/cubecart/core/internal/apperr"
	"github.com/cubecart/core/internal/credentials"
	"github.com/cubecart/core/internal/logger"
	"github.com/cubecart/core/internal/token"
	"github.com/cubecart/core/internal/users"
	"github.com/cubecart/core/internal/validation"
)

// AuthConfig wires the auth endpoints.
type AuthConfig struct {
	Log      *logger.Logger
	Users    *users.Store
	Vault    *credentials.Vault
	Tokens   *token.Service
	Guard    *access.Guard
	Validate *validatorv10.Validate
	TokenTTL time.Duration
}

// RegisterAuthRoutes mounts registration, login and account endpoints.
func RegisterAuthRoutes(r *gin.Engine, cfg AuthConfig) {
	r.POST("/auth/register", registerHandler(cfg))
	r.POST("/auth/login", loginHandler(cfg))

	authed := r.Group("/auth", cfg.Guard.RequireAuth())
	authed.GET("/me", meHandler(cfg))
	authed.PUT("/password", changePasswordHandler(cfg))
}

func registerHandler(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.RegisterRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}

		hash, err := cfg.Vault.Hash(req.Password)
		if err != nil {
			respondError(c, cfg.Log, apperr.Wrap(apperr.KindInternal, err, "could not hash password"))
			return
		}

		u := users.User{
			Email:        normalizeEmail(req.Email),
			UserID:       uuid.NewString(),
			Name:         req.Name,
			PasswordHash: hash,
			Role:         token.RoleUser,
		}
		if err := cfg.Users.Create(c.Request.Context(), u); err != nil {
			if err == users.ErrEmailTaken {
				respondError(c, cfg.Log, apperr.New(apperr.KindConflict, "email already registered"))
				return
			}
			respondError(c, cfg.Log, apperr.Wrap(apperr.KindInternal, err, "could not create user"))
			return
		}

		tok, err := cfg.Tokens.Issue(u.UserID, u.Email, u.Role, cfg.TokenTTL)
		if err != nil {
			respondError(c, cfg.Log, apperr.Wrap(apperr.KindInternal, err, "could not issue token"))
			return
		}

		cfg.Log.Info("user registered", "email", u.Email)
		c.JSON(http.StatusCreated, gin.H{"token": tok, "user": u.Public()})
	}
}

func loginHandler(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.LoginRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}

		u, err := cfg.Users.GetByEmail(c.Request.Context(), normalizeEmail(req.Email))
		if err != nil {
			respondError(c, cfg.Log, apperr.Wrap(apperr.KindInternal, err, "could not load user"))
			return
		}
		// Same response whether the account is missing or the password
		// is wrong, so login cannot be used to probe for accounts.
		if u == nil || !cfg.Vault.Verify(req.Password, u.PasswordHash) {
			respondError(c, cfg.Log, apperr.New(apperr.KindUnauthenticated, "invalid email or password"))
			return
		}

		tok, err := cfg.Tokens.Issue(u.UserID, u.Email, u.Role, cfg.TokenTTL)
		if err != nil {
			respondError(c, cfg.Log, apperr.Wrap(apperr.KindInternal, err, "could not issue token"))
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": tok, "user": u.Public()})
	}
}

func meHandler(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := access.ClaimsFrom(c)
		if !ok {
			respondError(c, cfg.Log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
			return
		}

		u, err := cfg.Users.GetByEmail(c.Request.Context(), claims.Email)
		if err != nil {
			respondError(c, cfg.Log, apperr.Wrap(apperr.KindInternal, err, "could not load user"))
			return
		}
		if u == nil {
			respondError(c, cfg.Log, apperr.New(apperr.KindNotFound, "user not found"))
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": u.Public()})
	}
}

func changePasswordHandler(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.ChangePasswordRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}

		claims, ok := access.ClaimsFrom(c)
		if !ok {
			respondError(c, cfg.Log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
			return
		}

		u, err := cfg.Users.GetByEmail(c.Request.Context(), claims.Email)
		if err != nil {
			respondError(c, cfg.Log, apperr.Wrap(apperr.KindInternal, err, "could not load user"))
			return
		}
		if u == nil {
			respondError(c, cfg.Log, apperr.New(apperr.KindNotFound, "user not found"))
			return
		}
		if !cfg.Vault.Verify(req.CurrentPassword, u.PasswordHash) {
			respondError(c, cfg.Log, apperr.New(apperr.KindUnauthenticated, "current password is incorrect"))
			return
		}

		hash, err := cfg.Vault.Hash(req.NewPassword)
		if err != nil {
			respondError(c, cfg.Log, apperr.Wrap(apperr.KindInternal, err, "could not hash password"))
			return
		}
		if err := cfg.Users.UpdatePasswordHash(c.Request.Context(), u.Email, hash); err != nil {
			respondError(c, cfg.Log, apperr.Wrap(apperr.KindInternal, err, "could not update password"))
			return
		}

		cfg.Log.Info("password changed", "email", u.Email)
		c.JSON(http.StatusOK, gin.H{"message": "password updated"})
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
