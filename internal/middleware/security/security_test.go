package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()
	cases := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct public", "203.0.113.7:5555", "", "", "203.0.113.7"},
		{"public peer cannot spoof", "203.0.113.7:5555", "1.1.1.1", "", "203.0.113.7"},
		{"trusted proxy xff", "10.0.0.2:80", "198.51.100.4, 10.0.0.2", "", "198.51.100.4"},
		{"trusted proxy x-real-ip", "127.0.0.1:80", "", "198.51.100.9", "198.51.100.9"},
		{"trusted proxy garbage header", "192.168.1.1:80", "nope", "", "192.168.1.1"},
		{"no port", "198.51.100.1", "", "", "198.51.100.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xri != "" {
				r.Header.Set("X-Real-IP", tc.xri)
			}
			if got := d.ExtractClientIP(r); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsSuspicious(t *testing.T) {
	d := NewDetector()
	cases := []struct {
		target string
		ua     string
		want   bool
	}{
		{"/api/transactions/summary?start=2024-01-01&end=2024-01-31", "Mozilla/5.0", false},
		{"/api/../../etc/passwd", "", true},
		{"/.env", "", true},
		{"/api/transactions/range?category=1%27%20union%20select", "", true},
		{"/api/transactions?q=%3Cscript%3E", "", true},
		{"/api/transactions", "sqlmap/1.7", true},
		{"/api/transactions?x=" + strings.Repeat("a", 3000), "", true},
	}
	flagged := int64(0)
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, tc.target, nil)
		r.Header.Set("User-Agent", tc.ua)
		if got := d.IsSuspicious(r); got != tc.want {
			t.Fatalf("%s (%s): got %v, want %v", tc.target, tc.ua, got, tc.want)
		}
		if tc.want {
			flagged++
		}
	}
	if d.SuspiciousRequests() != flagged {
		t.Fatalf("SuspiciousRequests = %d, want %d", d.SuspiciousRequests(), flagged)
	}
}

func TestAddTrustedProxyRejectsBadCIDR(t *testing.T) {
	if err := NewDetector().AddTrustedProxy("not-a-cidr"); err == nil {
		t.Fatal("expected error")
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, k := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Cache-Control"} {
		if rr.Header().Get(k) == "" {
			t.Fatalf("missing header %s", k)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("HSTS = %q", got)
	}
}
