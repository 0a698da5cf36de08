package cmd

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	coreconfig "github.com/AzielCF/az-aiwa/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestApp_WebhookIsNotRateLimited(t *testing.T) {
	cfg := &coreconfig.Config{App: coreconfig.AppConfig{Version: "test"}}
	app := newFiberApp(cfg, &application{})

	statuses := map[int]int{}
	for i := 0; i < 1005; i++ {
		// an unparseable delivery is acknowledged without reaching the engine
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		statuses[resp.StatusCode]++
		_ = resp.Body.Close()
	}
	assert.Equal(t, map[int]int{http.StatusOK: 1005}, statuses)
}

func TestRestApp_OtherRoutesAreRateLimited(t *testing.T) {
	cfg := &coreconfig.Config{App: coreconfig.AppConfig{Version: "test"}}
	app := newFiberApp(cfg, &application{})

	var last int
	for i := 0; i < 1001; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/app/version", nil), -1)
		require.NoError(t, err)
		last = resp.StatusCode
		_ = resp.Body.Close()
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
