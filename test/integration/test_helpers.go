//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"go-api-template/internal/app"
	"go-api-template/internal/config"
	"go-api-template/internal/model"
	"go-api-template/internal/password"
)

const apiPrefix = "/api/v1"

type serverConfig struct {
	rateLimitMax int
	authRPM      int
	redis        bool
}

// databaseURL prefers TEST_DATABASE_URL and falls back to a throwaway SQLite file.
func databaseURL(t *testing.T) string {
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		return url
	}
	return "sqlite://" + t.TempDir() + "/integration.db"
}

func newServer(t *testing.T, sc serverConfig) *httptest.Server {
	t.Helper()

	if sc.rateLimitMax == 0 {
		sc.rateLimitMax = 1000
	}

	cfg := &config.Config{
		Env:                     config.EnvTest,
		Host:                    "127.0.0.1",
		Port:                    3000,
		APIPrefix:               apiPrefix,
		DatabaseURL:             databaseURL(t),
		DBMaxConns:              4,
		DBMinConns:              0,
		JWTSecret:               "integration-secret",
		JWTExpiresIn:            time.Hour,
		LogLevel:                "error",
		RateLimitWindow:         time.Minute,
		RateLimitMax:            sc.rateLimitMax,
		RateLimitSweepInterval:  time.Minute,
		RateLimitStore:          config.RateLimitStoreMemory,
		AuthRateLimitRPM:        sc.authRPM,
		CORSOrigins:             []string{"*"},
		RequestTimeout:          10 * time.Second,
		ServerReadHeaderTimeout: 5 * time.Second,
		ServerWriteTimeout:      15 * time.Second,
		ServerIdleTimeout:       30 * time.Second,
	}

	if sc.redis {
		url := os.Getenv("TEST_REDIS_URL")
		if url == "" {
			t.Skip("TEST_REDIS_URL not set")
		}
		cfg.RateLimitStore = config.RateLimitStoreRedis
		cfg.RedisURL = url
	}

	a, err := app.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)),
		app.WithHasher(password.NewHasher(password.WithCost(1024, 8, 1))))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	server := httptest.NewServer(a.Handler())
	t.Cleanup(server.Close)
	return server
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, server *httptest.Server, method string, path string, body any, headers map[string]string) (*http.Response, apiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed apiResponse
	if len(raw) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(raw, &parsed), string(raw))
	}
	return resp, parsed
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func uniqueEmail() string {
	return "it-" + uuid.NewString() + "@example.com"
}

func registerUser(t *testing.T, server *httptest.Server, email string) model.AuthResult {
	t.Helper()

	resp, body := call(t, server, http.MethodPost, apiPrefix+"/auth/register",
		map[string]string{"email": email, "password": "Integr4tion"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body.Message)

	var result model.AuthResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	return result
}
