package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Identity headers set by the upstream gateway
const (
	UserIDHeader    = "X-User-ID"
	UserEmailHeader = "X-User-Email"
	UserRolesHeader = "X-User-Roles"

	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "

	ActorKey  = "actor"
	ClaimsKey = "jwt_claims"
)

// IdentityConfig holds configuration for the identity middleware
type IdentityConfig struct {
	// JWT verifies bearer tokens; nil or without a secret disables them
	JWT *auth.JWTService
	// Revocations is optional; lookups fail open
	Revocations auth.RevocationList
	// TrustHeaders accepts the X-User-* headers when no bearer token is sent
	TrustHeaders bool
	Logger       *zap.Logger
}

// Identity resolves the caller into a shared.Actor. A bearer token wins over
// gateway headers; a request carrying neither continues as anonymous and is
// turned away by RequireAuth or by the service it reaches.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		var (
			actor shared.Actor
			err   error
		)
		switch {
		case c.GetHeader(AuthHeaderKey) != "":
			actor, err = fromBearer(c, cfg)
		case cfg.TrustHeaders && c.GetHeader(UserIDHeader) != "":
			actor, err = fromHeaders(c)
		default:
			c.Next()
			return
		}
		if err != nil {
			cfg.Logger.Warn("Caller identity rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
			abortUnauthorized(c, identityMessage(err))
			return
		}

		c.Set(ActorKey, actor)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), actor.UserID.String()))
		c.Next()
	}
}

var errMalformedHeader = errors.New("malformed identity header")

func fromBearer(c *gin.Context, cfg IdentityConfig) (shared.Actor, error) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) || strings.TrimPrefix(header, BearerPrefix) == "" {
		return shared.Actor{}, auth.ErrInvalidToken
	}
	if cfg.JWT == nil || !cfg.JWT.Enabled() {
		return shared.Actor{}, auth.ErrNoSecret
	}
	claims, err := cfg.JWT.Validate(strings.TrimPrefix(header, BearerPrefix))
	if err != nil {
		return shared.Actor{}, err
	}
	if cfg.Revocations != nil && revoked(c, cfg, claims) {
		return shared.Actor{}, auth.ErrTokenRevoked
	}
	actor, err := claims.Actor()
	if err != nil {
		return shared.Actor{}, err
	}
	c.Set(ClaimsKey, claims)
	return actor, nil
}

func revoked(c *gin.Context, cfg IdentityConfig, claims *auth.Claims) bool {
	ctx := c.Request.Context()
	if claims.ID != "" {
		hit, err := cfg.Revocations.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			cfg.Logger.Error("Failed to check token revocation", zap.String("jti", claims.ID), zap.Error(err))
		} else if hit {
			return true
		}
	}
	hit, err := cfg.Revocations.IsUserRevoked(ctx, claims.UserID, claims.GetIssuedAtTime())
	if err != nil {
		cfg.Logger.Error("Failed to check user revocation", zap.String("user_id", claims.UserID), zap.Error(err))
		return false
	}
	return hit
}

func fromHeaders(c *gin.Context) (shared.Actor, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.GetHeader(UserIDHeader)))
	if err != nil || id == uuid.Nil {
		return shared.Actor{}, errMalformedHeader
	}
	return shared.Actor{
		UserID: id,
		Email:  strings.TrimSpace(c.GetHeader(UserEmailHeader)),
		Roles:  shared.ParseRoles(c.GetHeader(UserRolesHeader)),
	}, nil
}

func identityMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "Token has been revoked"
	case errors.Is(err, auth.ErrNoSecret):
		return "Bearer tokens are not accepted"
	case errors.Is(err, errMalformedHeader):
		return "X-User-ID must be a UUID"
	default:
		return "Invalid token"
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.Set(ErrorCodeKey, shared.CodeUnauthorized)
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(shared.CodeUnauthorized, message, GetRequestID(c)))
}

// GetActor returns the caller resolved by Identity; anonymous when none was
func GetActor(c *gin.Context) shared.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if a, ok := v.(shared.Actor); ok {
			return a
		}
	}
	return shared.Actor{}
}

// GetClaims returns the verified bearer token claims, if any
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
