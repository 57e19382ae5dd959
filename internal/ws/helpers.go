package ws

import (
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

func deviceIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Device-ID")
}

func requestIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
}

func ipFromRequest(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
