package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newProtectedEcho(secret string) *echo.Echo {
	e := echo.New()
	e.Use(ProtectPrefixes(secret, "/debug/"))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/debug/sessions", ok)
	e.GET("/status", ok)
	return e
}

func do(e *echo.Echo, path, token string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestGenerateToken(t *testing.T) {
	signed, expiresAt, err := GenerateToken("ops", testSecret, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	token, err := jwt.Parse(signed, func(*jwt.Token) (interface{}, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "ops", claims[claimSubject])
	assert.Equal(t, roleOperator, claims[claimRole])

	_, _, err = GenerateToken("", testSecret, time.Hour)
	assert.Error(t, err)
	_, _, err = GenerateToken("ops", "", time.Hour)
	assert.Error(t, err)
	_, _, err = GenerateToken("ops", testSecret, 0)
	assert.Error(t, err)
}

func TestProtectPrefixes(t *testing.T) {
	e := newProtectedEcho(testSecret)
	signed, _, err := GenerateToken("ops", testSecret, time.Hour)
	require.NoError(t, err)
	forged, _, err := GenerateToken("ops", "other-secret", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(e, "/status", ""))
	assert.Equal(t, http.StatusUnauthorized, do(e, "/debug/sessions", ""))
	assert.Equal(t, http.StatusUnauthorized, do(e, "/debug/sessions", forged))
	assert.Equal(t, http.StatusOK, do(e, "/debug/sessions", signed))
	assert.Equal(t, http.StatusOK, do(e, "/debug/sessions?token="+signed, ""))
}

func TestProtectPrefixes_RequiresOperatorRole(t *testing.T) {
	e := newProtectedEcho(testSecret)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		claimSubject: "someone",
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(e, "/debug/sessions", signed))
}

func TestProtectPrefixes_NoSecretDisablesRoutes(t *testing.T) {
	e := newProtectedEcho("")
	assert.Equal(t, http.StatusForbidden, do(e, "/debug/sessions", ""))
	assert.Equal(t, http.StatusOK, do(e, "/status", ""))
}

func TestOperatorFromContext_MissingUser(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := OperatorFromContext(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}
