package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// EffectiveIP resolves and attaches the client's effective address:
// the socket peer is authoritative unless it appears in
// trustedProxies, in which case the first hop of X-Forwarded-For is
// used instead.
func EffectiveIP(trustedProxies []string) gin.HandlerFunc {
	trusted := make(map[string]bool, len(trustedProxies))
	for _, p := range trustedProxies {
		trusted[p] = true
	}
	return func(c *gin.Context) {
		peer := c.ClientIP()
		if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
			peer = host
		}

		effective := peer
		if trusted[peer] {
			if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
				parts := strings.Split(xff, ",")
				if first := strings.TrimSpace(parts[0]); first != "" {
					effective = first
				}
			}
		}

		c.Set(ctxClientIP, effective)
		c.Next()
	}
}

// ClientIP returns the effective client IP attached by EffectiveIP.
func ClientIP(c *gin.Context) string {
	if v, ok := c.Get(ctxClientIP); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return c.ClientIP()
}

// ParseCIDRs parses a list of CIDR blocks. A bare IP is accepted as a
// /32 or /128; entries that parse as neither are silently skipped.
func ParseCIDRs(blocks []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(blocks))
	for _, b := range blocks {
		if _, n, err := net.ParseCIDR(b); err == nil {
			nets = append(nets, n)
			continue
		}
		if ip := net.ParseIP(b); ip != nil {
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
		}
	}
	return nets
}

// IPAdmission rejects requests whose effective IP is outside every
// configured CIDR, when an allow-list is configured at all.
func IPAdmission(allowed []*net.IPNet) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}
		ip := net.ParseIP(ClientIP(c))
		if ip == nil {
			abortForbidden(c)
			return
		}
		for _, n := range allowed {
			if n.Contains(ip) {
				c.Next()
				return
			}
		}
		abortForbidden(c)
	}
}

func abortForbidden(c *gin.Context) {
	c.AbortWithStatusJSON(403, gin.H{"ok": false, "error": "Forbidden"})
}
