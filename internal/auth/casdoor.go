package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/corplearn/training-service/internal/config"
	"github.com/corplearn/training-service/internal/models"
	"github.com/corplearn/training-service/internal/repositories"
	"github.com/gin-gonic/gin"
)

// Gin context keys set by the middleware.
const (
	ContextUserID   = "user_id"
	ContextUserName = "user_name"
	ContextUserRole = "user_role"
)

// Authenticator validates Casdoor bearer tokens and mirrors the identity
// into the local users table.
type Authenticator struct {
	client *casdoorsdk.Client
	users  repositories.UserRepository
	logger *slog.Logger
}

func NewAuthenticator(cfg *config.Config, users repositories.UserRepository, logger *slog.Logger) *Authenticator {
	client := casdoorsdk.NewClient(
		cfg.CasdoorEndpoint,
		cfg.CasdoorClientID,
		cfg.CasdoorClientSecret,
		cfg.CasdoorCertificate,
		cfg.CasdoorOrganization,
		cfg.CasdoorApplication,
	)
	return &Authenticator{
		client: client,
		users:  users,
		logger: logger,
	}
}

// Middleware authenticates the request and stores the caller's identity in
// the Gin context.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := a.client.ParseJwtToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			a.logger.Warn("Token validation failed", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		role := models.RoleEmployee
		if claims.User.IsAdmin {
			role = models.RoleAdmin
		}

		c.Set(ContextUserID, claims.User.Id)
		c.Set(ContextUserName, claims.User.DisplayName)
		c.Set(ContextUserRole, role)

		a.syncUser(c.Request.Context(), &claims.User, role)
		c.Next()
	}
}

// syncUser keeps the local users table current. Failures are logged, not
// surfaced; authentication already succeeded.
func (a *Authenticator) syncUser(ctx context.Context, u *casdoorsdk.User, role models.UserRole) {
	now := time.Now()
	user := &models.User{
		ID:          u.Id,
		FullName:    u.DisplayName,
		Email:       u.Email,
		Role:        role,
		IsActive:    true,
		LastLoginAt: &now,
	}
	if err := a.users.Upsert(ctx, user); err != nil {
		a.logger.Warn("Failed to sync user", "user_id", u.Id, "error", err)
	}
}

// RequireAdmin rejects callers whose token did not carry the admin role.
// Must run after Middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserRole(c) != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated caller's ID, or "" when the
// middleware did not run.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func CurrentUserRole(c *gin.Context) models.UserRole {
	if role, ok := c.Get(ContextUserRole); ok {
		if r, ok := role.(models.UserRole); ok {
			return r
		}
	}
	return models.RoleEmployee
}
