package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetrics_CountsRequestsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/widgets/:id", func(c *gin.Context) { c.String(http.StatusOK, "w") })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/widgets/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/widgets/2", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics endpoint: %d", w.Code)
	}

	body := w.Body.String()
	// The registered route template is the label, not the raw path, so
	// per-ID cardinality stays bounded.
	if !strings.Contains(body, `path="/widgets/:id"`) {
		t.Fatalf("route-template label missing:\n%s", firstLines(body, 40))
	}
	if strings.Contains(body, `path="/widgets/1"`) {
		t.Fatalf("raw path leaked into labels")
	}
	if !strings.Contains(body, "http_requests_total") ||
		!strings.Contains(body, "http_request_duration_seconds") {
		t.Fatalf("core series missing")
	}
}

func firstLines(s string, n int) string {
	lines := strings.SplitN(s, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
