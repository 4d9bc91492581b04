package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/edcshuttle/passgate/internal/domain"
	"github.com/edcshuttle/passgate/internal/http/response"
	"github.com/edcshuttle/passgate/internal/repository"
	"github.com/edcshuttle/passgate/internal/service"
	"github.com/edcshuttle/passgate/pkg/auth"
	"github.com/edcshuttle/passgate/pkg/logger"
)

const (
	scanRateLimit       = 30
	scanRateLimitWindow = time.Minute
)

type Handlers struct {
	scanService service.ScanService
	rateLimit   repository.RateLimitRepository
	jwtSecret   string
}

func New(scanService service.ScanService, rateLimit repository.RateLimitRepository, jwtSecret string) *Handlers {
	return &Handlers{
		scanService: scanService,
		rateLimit:   rateLimit,
		jwtSecret:   jwtSecret,
	}
}

// scanRequest accepts the token under any of the field names the various
// front-end generations have used. The server re-normalizes regardless;
// client-side extraction is never trusted as authoritative.
type scanRequest struct {
	Token    string `json:"token"`
	Value    string `json:"value"`
	Scan     string `json:"scan"`
	Data     string `json:"data"`
	QR       string `json:"qr"`
	ScanType string `json:"scanType"`
}

func (r *scanRequest) raw() string {
	for _, v := range []string{r.Token, r.Value, r.Scan, r.Data, r.QR} {
		if v != "" {
			return v
		}
	}
	return ""
}

type scanResponse struct {
	OK      bool   `json:"ok"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Scan handles POST /api/scan. Validation outcomes, including denials, are
// HTTP 200: a denied pass is a result, not a protocol error.
func (h *Handlers) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	scanType, ok := domain.ParseScanType(req.ScanType)
	if !ok {
		response.BadRequest(w, "scanType must be DEPART or RETURN")
		return
	}

	deviceID := r.Header.Get("X-Device-ID")

	key := "device:" + deviceID
	if deviceID == "" {
		key = "ip:" + clientIP(r)
	}
	if allowed, _ := h.rateLimit.Allow(r.Context(), key, scanRateLimit, scanRateLimitWindow); !allowed {
		response.RateLimit(w, "Too many scans. Slow down.")
		return
	}

	verdict := h.scanService.Validate(r.Context(), req.raw(), scanType, deviceID)

	status := "DENIED"
	if verdict.OK {
		status = "ALLOWED"
	}

	writeJSON(w, http.StatusOK, scanResponse{
		OK:      verdict.OK,
		Status:  status,
		Message: verdict.Message,
	})
}

// ListScans handles GET /admin/scans for onsite dispute resolution. With a
// token query parameter it returns that token's history; otherwise it
// returns the from/to window, defaulting to the last 24 hours.
func (h *Handlers) ListScans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	if token := q.Get("token"); token != "" {
		events, err := h.scanService.ScansByToken(r.Context(), strings.ToUpper(token), limit)
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to list scans by token", "error", err)
			response.InternalError(w, "Failed to query scan history")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"scans": events})
		return
	}

	to := time.Now()
	from := to.Add(-24 * time.Hour)
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, "from must be RFC3339")
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, "to must be RFC3339")
			return
		}
		to = t
	}

	events, err := h.scanService.ScansByTimeRange(r.Context(), from, to, limit)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list scans by time range", "error", err)
		response.InternalError(w, "Failed to query scan history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": events})
}

// RequireJWT guards admin endpoints with a bearer token carrying the
// required role.
func (h *Handlers) RequireJWT(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.Unauthorized(w, "Missing or invalid authorization header")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := auth.Parse(token, h.jwtSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid token")
				return
			}

			if requiredRole != "" && claims.Role != requiredRole && claims.Role != "admin" {
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), logger.DeviceIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// clientIP extracts the real client IP from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
