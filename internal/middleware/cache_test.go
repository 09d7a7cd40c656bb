package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-lot/internal/config"
)

func cacheCfg() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{"GET": true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "t:cache",
		MaxBodyBytes: 1024,
	}
}

func rateCfg() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            time.Minute,
		KeyStrategy:    "user_route",
		Prefix:         "t:rl",
	}
}

func TestEntryRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodeEntry(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodeEntry(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodeEntry([]byte{1, 2})
	assert.False(t, ok)
	_, _, _, ok = decodeEntry(append(bs[:8:8], 'x'))
	assert.False(t, ok)
}

func TestCacheKeyDependsOnQuery(t *testing.T) {
	e := echo.New()
	key := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/vehicles")
		return cacheKey(cacheCfg(), c)
	}
	assert.Equal(t, key("/v1/vehicles"), key("/v1/vehicles"))
	assert.NotEqual(t, key("/v1/vehicles"), key("/v1/vehicles?a=1"))
	assert.True(t, strings.HasPrefix(key("/v1/vehicles"), "t:cache:"))
}

func TestRateKeyPerUser(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/grid/toggle", nil), httptest.NewRecorder())
	c.SetPath("/v1/grid/toggle")
	assert.Equal(t, "t:rl:user:anon:route:POST /v1/grid/toggle", rateKey(rateCfg(), c))

	c.Set(UserIDKey, uint64(7))
	assert.Equal(t, "t:rl:user:7:route:POST /v1/grid/toggle", rateKey(rateCfg(), c))
}

func TestCaptureWriterLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, err := cw.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, "abcd", cw.buf.String())
	assert.Equal(t, "abcdef", rec.Body.String())
}
