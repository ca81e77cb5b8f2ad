// Package security sets response security headers and flags requests that
// look like probes.
package security

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"

	applog "rfcharts/internal/log"
)

// maxRequestURI is far beyond any plan or chart route.
const maxRequestURI = 2048

// probeMarkers are path or query fragments no chart route ever contains.
var probeMarkers = []string{
	"../", "..\\", "/.env", "/.git", "wp-admin", "phpmyadmin", ".php",
	"etc/passwd", "<script", "union select",
}

var scannerAgents = []string{"sqlmap", "nikto", "nmap", "gobuster", "dirb", "masscan"}

// Forwarded headers are only believed from these networks.
var privateNetworks = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
}

// DetectionMetrics counts what the detector has seen.
type DetectionMetrics struct {
	SuspiciousRequests int64 `json:"suspicious_requests"`
	InvalidIPAttempts  int64 `json:"invalid_ip_attempts"`
}

// Detector flags probe traffic and resolves client addresses behind the
// reverse proxy.
type Detector struct {
	suspicious atomic.Int64
	invalidIP  atomic.Int64
}

func NewDetector() *Detector {
	return &Detector{}
}

// Inspect reports why r looks like a probe. The query is matched in its raw,
// still encoded form.
func (d *Detector) Inspect(r *http.Request) (reason string, suspicious bool) {
	reason = probeReason(r)
	if reason == "" {
		return "", false
	}
	d.suspicious.Add(1)
	return reason, true
}

func probeReason(r *http.Request) string {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, m := range probeMarkers {
		if strings.Contains(path, m) || strings.Contains(query, m) {
			return "marker " + m
		}
	}
	agent := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return "scanner " + a
		}
	}
	if r.Method == http.MethodTrace || r.Method == "TRACK" {
		return "method " + r.Method
	}
	if len(r.URL.RequestURI()) > maxRequestURI {
		return "request uri too long"
	}
	return ""
}

// ExtractClientIP returns the peer address, or the first forwarded address
// when the peer is a private-network proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil {
		d.invalidIP.Add(1)
		return host
	}
	if !trustedProxy(peer) {
		return host
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(r.Header.Get("X-Real-IP")); err == nil {
		return addr.String()
	}
	return host
}

func trustedProxy(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range privateNetworks {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIP.Load(),
	}
}

// Middleware logs probe-looking requests and still serves them; routing and
// validation reject them on their own.
func (d *Detector) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if reason, ok := d.Inspect(r); ok {
				logger.WarnContext(r.Context(), "Suspicious request",
					applog.FieldClientIP, d.ExtractClientIP(r),
					applog.FieldMethod, r.Method,
					applog.FieldPath, r.URL.Path,
					applog.FieldUserAgent, r.UserAgent(),
					"reason", reason)
			}
			next.ServeHTTP(w, r)
		})
	}
}
