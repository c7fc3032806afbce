package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	autherrors "leave-portal/internal/auth/errors"
	"leave-portal/internal/domain"
	"leave-portal/internal/shared/apperror"
	"leave-portal/internal/shared/contextutil"
	"leave-portal/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	ContextUserID    = "user_id"
	ContextRole      = "role"
	ContextName      = "name"
	ContextPrincipal = "principal"
)

// PrincipalRefresher reloads role and name from the user store so that a role
// change takes effect before the token expires.
type PrincipalRefresher interface {
	RefreshPrincipal(ctx context.Context, p domain.Principal) (domain.Principal, error)
}

// AuthMiddleware verifies the bearer token (or access_token cookie) and stores
// the resolved principal on the gin context. Refresh failures are ignored and
// the token claims are used as-is.
func AuthMiddleware(secret string, refresher PrincipalRefresher) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			tokenString = ""
		}
		tokenString = strings.TrimSpace(tokenString)

		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			abortWithError(c, autherrors.ErrTokenNotFound)
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			errObj := autherrors.ErrInvalidToken
			if errors.Is(err, jwt.ErrTokenExpired) {
				errObj = autherrors.ErrTokenExpired
			}
			abortWithError(c, errObj)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortWithError(c, autherrors.ErrInvalidToken)
			return
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			abortWithError(c, autherrors.ErrInvalidToken)
			return
		}

		role, _ := claims["role"].(string)
		name, _ := claims["name"].(string)
		principal := domain.Principal{ID: userID, Role: role, Name: name}

		if refresher != nil {
			if fresh, err := refresher.RefreshPrincipal(c.Request.Context(), principal); err == nil {
				principal = fresh
			} else {
				contextutil.GetLogger(c.Request.Context(), zap.L()).Debug("principal refresh skipped",
					zap.String("user_id", userID),
					zap.Error(err),
				)
			}
		}

		c.Set(ContextUserID, principal.ID)
		c.Set(ContextRole, principal.Role)
		c.Set(ContextName, principal.Name)
		c.Set(ContextPrincipal, principal)

		ctx := contextutil.WithUserID(c.Request.Context(), principal.ID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// PrincipalFromContext returns the principal stored by AuthMiddleware.
func PrincipalFromContext(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok && p.ID != ""
}

func abortWithError(c *gin.Context, err *apperror.AppError) {
	response.Error(c, err.HTTPStatus, err.Code, err.Message, nil)
	c.Abort()
}
