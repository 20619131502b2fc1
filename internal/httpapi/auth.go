package httpapi

import (
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"

	"github.com/objectql/objectos-sub004/internal/permission"
)

const permissionContextKey = "objectos.permissionContext"

// bearerAuth decodes an optional `Authorization: Bearer <token>` header into
// a permission.Context, populating userId/profiles from the token claims.
// Authentication itself is explicitly out of the kernel's scope (spec.md
// §1, "auth adapter ... described only by its interface"); this is just
// enough wiring to exercise the permission engine's contract end to end,
// so an unparsable or missing token yields an empty, unauthenticated
// context rather than a rejected request.
func bearerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := permission.Context{}

		header := c.GetHeader("Authorization")
		if token := strings.TrimPrefix(header, "Bearer "); token != header && token != "" {
			if claims, err := parseClaims(token, secret); err == nil {
				ctx = contextFromClaims(claims)
			}
		}

		c.Set(permissionContextKey, ctx)
		c.Next()
	}
}

func parseClaims(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.NewValidationError("unexpected claims type", jwt.ValidationErrorClaimsInvalid)
	}
	return claims, nil
}

func contextFromClaims(claims jwt.MapClaims) permission.Context {
	ctx := permission.Context{}
	if v, ok := claims["userId"].(string); ok {
		ctx.UserID = v
	}
	if v, ok := claims["organizationId"].(string); ok {
		ctx.OrganizationID = v
	}
	if v, ok := claims["role"].(string); ok {
		ctx.Role = v
	}
	if raw, ok := claims["profiles"].([]any); ok {
		for _, p := range raw {
			if s, ok := p.(string); ok {
				ctx.Profiles = append(ctx.Profiles, s)
			}
		}
	}
	if raw, ok := claims["permissionSets"].([]any); ok {
		for _, p := range raw {
			if s, ok := p.(string); ok {
				ctx.PermissionSets = append(ctx.PermissionSets, s)
			}
		}
	}
	return ctx
}

// permissionContext retrieves the Context bearerAuth attached to the
// request, or a zero-value Context if the middleware never ran.
func permissionContext(c *gin.Context) permission.Context {
	v, ok := c.Get(permissionContextKey)
	if !ok {
		return permission.Context{}
	}
	ctx, _ := v.(permission.Context)
	return ctx
}
