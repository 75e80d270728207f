package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"net/netip"

	"github.com/go-chi/chi/v5"
)

// IPAllowlist rejects requests whose remote address is outside every prefix
// with 403.
func IPAllowlist(prefixes []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			addr, err := netip.ParseAddr(host)
			if err == nil {
				addr = addr.Unmap()
				for _, p := range prefixes {
					if p.Contains(addr) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}

// ParseCIDRs parses each entry, skipping and logging invalid ones.
func ParseCIDRs(cidrs []string, logger *slog.Logger) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		p, err := netip.ParsePrefix(c)
		if err != nil {
			logger.Warn("ignoring invalid pprof CIDR", slog.String("cidr", c), slog.String("error", err.Error()))
			continue
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes
}

// RegisterPprof mounts the runtime profiling endpoints under /debug/pprof,
// reachable only from the given CIDRs. Nothing is mounted when no CIDR is
// valid.
func RegisterPprof(r chi.Router, cidrs []string, logger *slog.Logger) {
	prefixes := ParseCIDRs(cidrs, logger)
	if len(prefixes) == 0 {
		return
	}

	r.Route("/debug/pprof", func(r chi.Router) {
		r.Use(IPAllowlist(prefixes))
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		r.Handle("/{profile}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pprof.Handler(chi.URLParam(r, "profile")).ServeHTTP(w, r)
		}))
	})
}
