// Package auth guards operator-only HTTP routes with HS256 bearer tokens.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	claimSubject = "sub"
	claimRole    = "role"
	roleOperator = "operator"
)

// JWTMiddleware returns a JWT auth middleware configured for HS256 tokens.
func JWTMiddleware(secret string, skipper middleware.Skipper) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		TokenLookup:   "header:Authorization:Bearer ,query:token",
		Skipper:       skipper,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return jwt.MapClaims{}
		},
	})
}

// ProtectPrefixes requires a valid operator token on every path under one of
// prefixes. With an empty secret those paths are refused outright.
func ProtectPrefixes(secret string, prefixes ...string) echo.MiddlewareFunc {
	protected := func(c echo.Context) bool {
		path := c.Request().URL.Path
		for _, p := range prefixes {
			if strings.HasPrefix(path, p) {
				return true
			}
		}
		return false
	}
	if strings.TrimSpace(secret) == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if protected(c) {
					return echo.NewHTTPError(http.StatusForbidden, "operator endpoints are disabled")
				}
				return next(c)
			}
		}
	}
	jwtMW := JWTMiddleware(secret, func(c echo.Context) bool { return !protected(c) })
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		guarded := jwtMW(func(c echo.Context) error {
			if !protected(c) {
				return next(c)
			}
			if _, err := OperatorFromContext(c); err != nil {
				return err
			}
			return next(c)
		})
		return guarded
	}
}

// OperatorFromContext returns the operator name from a validated token.
func OperatorFromContext(c echo.Context) (string, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil || !token.Valid {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	if claimString(claims, claimRole) != roleOperator {
		return "", echo.NewHTTPError(http.StatusForbidden, "operator role required")
	}
	name := claimString(claims, claimSubject)
	if name == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "subject missing")
	}
	return name, nil
}

// GenerateToken creates a signed operator JWT.
func GenerateToken(operator, secret string, expiresIn time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(operator) == "" {
		return "", time.Time{}, fmt.Errorf("operator is required")
	}
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, fmt.Errorf("jwt secret is required")
	}
	if expiresIn <= 0 {
		return "", time.Time{}, fmt.Errorf("jwt expires in must be positive")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(expiresIn)
	claims := jwt.MapClaims{
		claimSubject: operator,
		claimRole:    roleOperator,
		"iat":        now.Unix(),
		"exp":        expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	raw, ok := claims[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(raw)
	}
}
