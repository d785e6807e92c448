package api

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"sort"
	"strings"

	"AdvisorDesk/internal/logger"
	"AdvisorDesk/pkg/loadbalancer"

	"go.uber.org/zap"
)

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	return r.RemoteAddr
}

// createReverseProxy forwards to the balancer's backends and writes an audit
// line per request.
func createReverseProxy(prefix string, lb *loadbalancer.LoadBalancer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := lb.Next()
		clientIP := extractClientIP(r)

		proxy := httputil.NewSingleHostReverseProxy(target)
		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.L().Error("gateway proxy error",
				zap.String("target", target.String()),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			RespondWithError(w, http.StatusBadGateway, "upstream unavailable")
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		proxy.ServeHTTP(rw, r)

		if lg := logger.GlobalLogger; lg != nil {
			lg.LogAudit(fmt.Sprintf("[Gateway] %s %s from %s proxied to %s status %d", r.Method, r.URL.Path, clientIP, target, rw.statusCode))
		}
		logger.L().Debug("gateway request",
			zap.String("route", prefix),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.statusCode))
	}
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// NewGatewayMux routes each prefix to its backends. Longer prefixes win, as
// with http.ServeMux.
func NewGatewayMux(routes map[string][]string) (*http.ServeMux, error) {
	mux := http.NewServeMux()

	prefixes := make([]string, 0, len(routes))
	for p := range routes {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		if !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("gateway route %q must start with /", prefix)
		}
		lb, err := loadbalancer.NewLoadBalancer(routes[prefix])
		if err != nil {
			return nil, fmt.Errorf("gateway route %s: %w", prefix, err)
		}
		mux.HandleFunc(prefix, createReverseProxy(prefix, lb))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		RespondWithPayload(w, http.StatusOK, map[string]interface{}{"status": "API Gateway is healthy"})
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		logger.L().Warn("gateway route not found", zap.String("path", r.URL.Path), zap.String("client_ip", extractClientIP(r)))
		RespondWithError(w, http.StatusNotFound, "404 - Route not found")
	})
	return mux, nil
}
