package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/facility-placement/internal/config"
	"github.com/iliyamo/facility-placement/internal/utils"
)

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"subject": Subject(c), "role": c.Get(ctxRole)})
}

func newAuthEcho(t *testing.T) (*echo.Echo, string) {
	t.Helper()
	hash, err := utils.HashAPIKey("integration-key", bcrypt.MinCost)
	require.NoError(t, err)
	e := echo.New()
	g := e.Group("/v1", Authenticate(AuthConfig{JWTSecret: "secret", APIKeyHash: hash, APIKeyRole: utils.RoleOperator}))
	g.GET("/whoami", whoami)
	g.POST("/write", whoami, RequireRole(utils.RoleOperator))
	return e, hash
}

func serve(e *echo.Echo, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	e, _ := newAuthEcho(t)
	viewer, err := utils.NewAccessToken("secret", "dashboard", utils.RoleViewer, time.Minute)
	require.NoError(t, err)
	forged, err := utils.NewAccessToken("other", "dashboard", utils.RoleOperator, time.Minute)
	require.NoError(t, err)

	rec := serve(e, http.MethodGet, "/v1/whoami", map[string]string{"Authorization": "Bearer " + viewer.Token})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subject":"dashboard","role":"VIEWER"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/v1/whoami", map[string]string{APIKeyHeader: "integration-key"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subject":"api-key","role":"OPERATOR"}`, rec.Body.String())

	cases := map[string]map[string]string{
		"no credentials": nil,
		"wrong api key":  {APIKeyHeader: "guess"},
		"forged token":   {"Authorization": "Bearer " + forged.Token},
		"basic auth":     {"Authorization": "Basic Zm9vOmJhcg=="},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, "/v1/whoami", h)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	e, _ := newAuthEcho(t)
	viewer, err := utils.NewAccessToken("secret", "dashboard", utils.RoleViewer, time.Minute)
	require.NoError(t, err)
	operator, err := utils.NewAccessToken("secret", "ops", utils.RoleOperator, time.Minute)
	require.NoError(t, err)

	rec := serve(e, http.MethodPost, "/v1/write", map[string]string{"Authorization": "Bearer " + viewer.Token})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(e, http.MethodPost, "/v1/write", map[string]string{"Authorization": "Bearer " + operator.Token})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil),
		NewRedisCache(config.CacheConfig{Enabled: true}, nil),
		RequestLogger(),
	)
	rec := serve(e, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestRequestLoggerKeepsErrorStatus(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger())
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "nope") })

	rec := serve(e, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok)
}

func TestCacheKeyIncludesParams(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	key := func(code, query string) string {
		req := httptest.NewRequest(http.MethodGet, "/v1/equipment-types/"+code+query, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/equipment-types/:code")
		c.SetParamNames("code")
		c.SetParamValues(code)
		return cacheKeyFrom(cfg, c)
	}
	a := key("EQT-001", "")
	assert.Equal(t, a, key("EQT-001", ""))
	assert.NotEqual(t, a, key("EQT-002", ""))
	assert.NotEqual(t, a, key("EQT-001", "?x=1"))
	assert.Regexp(t, `^cache:[0-9a-f]{40}$`, a)
}

func TestCaptureWriterLimit(t *testing.T) {
	cw := &captureWriter{ResponseWriter: httptest.NewRecorder(), limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.overflowed())
	_, _ = cw.Write([]byte("de"))
	assert.True(t, cw.overflowed())
	assert.Equal(t, "abc", cw.buf.String())
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/contracts", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/contracts")
	c.Set(ctxSubject, "ops")

	assert.Equal(t, "rl:ip:10.0.0.7", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c))
	assert.Equal(t, "rl:sub:ops", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "subject"}, c))
	assert.Equal(t, "rl:ip:10.0.0.7:sub:ops:route:POST /v1/contracts", buildRateKey(config.RateLimitConfig{Prefix: "rl"}, c))
}
