package router

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/captolab/gpuhub/internal/config"
	"github.com/go-chi/chi/v5"
)

func TestAllRoutesRegistered(t *testing.T) {
	cfg := &config.Config{
		JWTSecret:          "test-secret",
		TokenExpiryHours:   24,
		DailyQuotaMinutes:  60,
		PythonBin:          "python3",
		ExecTimeoutSeconds: 300,
		WorkDir:            t.TempDir(),
	}

	handler := New(cfg, nil, nil)
	routes, ok := handler.(chi.Routes)
	if !ok {
		t.Fatalf("router does not implement chi.Routes")
	}

	registered := map[string]bool{}
	if err := chi.Walk(routes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		registered[fmt.Sprintf("%s %s", method, route)] = true
		return nil
	}); err != nil {
		t.Fatalf("walk routes: %v", err)
	}

	for _, route := range []string{
		"GET /healthz",
		"GET /metrics",
		"POST /api/auth/register",
		"POST /api/auth/login",
		"GET /api/auth/verify",
		"POST /api/gpu/execute/start",
		"POST /api/gpu/execute/stop",
		"POST /api/gpu/execute/code",
		"POST /api/gpu/execute/input",
		"GET /api/gpu/usage",
		"GET /api/gpu/quota/check",
		"GET /api/gpu/stats",
		"GET /api/admin/usage/all",
		"POST /api/admin/quota/reset",
		"PUT /api/admin/users/{userID}/toggle",
	} {
		if !registered[route] {
			t.Fatalf("missing route %s", route)
		}
	}
}
