package endpoint_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/persistkit/component"
	"github.com/kbukum/persistkit/server/endpoint"
	"github.com/kbukum/persistkit/version"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(t *testing.T, h gin.HandlerFunc) (int, map[string]any) {
	t.Helper()
	r := gin.New()
	r.GET("/", h)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return rr.Code, body
}

func checker(statuses ...component.HealthStatus) endpoint.HealthChecker {
	return func(context.Context) []component.Health {
		out := make([]component.Health, len(statuses))
		for i, s := range statuses {
			out[i] = component.Health{Name: string(s) + "-component", Status: s}
		}
		return out
	}
}

func TestLiveness(t *testing.T) {
	code, body := get(t, endpoint.Liveness("persistd"))
	if code != http.StatusOK || body["status"] != "alive" || body["service"] != "persistd" {
		t.Errorf("got %d %v", code, body)
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name    string
		checker endpoint.HealthChecker
		code    int
		status  string
	}{
		{"no checker", nil, http.StatusOK, "ready"},
		{"all healthy", checker(component.StatusHealthy), http.StatusOK, "ready"},
		{"degraded is ready", checker(component.StatusHealthy, component.StatusDegraded), http.StatusOK, "ready"},
		{"unhealthy", checker(component.StatusHealthy, component.StatusUnhealthy), http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := get(t, endpoint.Readiness("persistd", tc.checker))
			if code != tc.code || body["status"] != tc.status {
				t.Errorf("got %d %v", code, body)
			}
		})
	}

	_, body := get(t, endpoint.Readiness("persistd", checker(component.StatusUnhealthy)))
	failing, _ := body["failing"].([]any)
	if len(failing) != 1 || failing[0] != "unhealthy-component" {
		t.Errorf("failing = %v", body["failing"])
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		checker endpoint.HealthChecker
		code    int
		status  string
	}{
		{"healthy", checker(component.StatusHealthy), http.StatusOK, "healthy"},
		{"degraded", checker(component.StatusHealthy, component.StatusDegraded), http.StatusOK, "degraded"},
		{"unhealthy wins", checker(component.StatusDegraded, component.StatusUnhealthy), http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := get(t, endpoint.Health("persistd", tc.checker))
			if code != tc.code || body["status"] != tc.status {
				t.Errorf("got %d %v", code, body)
			}
		})
	}
}

func TestOverall(t *testing.T) {
	if got := endpoint.Overall(nil); got != component.StatusHealthy {
		t.Errorf("no components = %s, want healthy", got)
	}
	results := []component.Health{
		{Name: "a", Status: component.StatusUnhealthy},
		{Name: "b", Status: component.StatusDegraded},
	}
	if got := endpoint.Overall(results); got != component.StatusUnhealthy {
		t.Errorf("got %s, want unhealthy", got)
	}
}

func TestVersion(t *testing.T) {
	prev := version.Version
	version.Version = "2.0.0"
	defer func() { version.Version = prev }()

	code, body := get(t, endpoint.Version())
	if code != http.StatusOK || body["version"] != "2.0.0" || body["is_release"] != true {
		t.Errorf("got %d %v", code, body)
	}
}
