package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"learn.slidingwindow/config"
)

// HeaderUserID carries the authenticated user identity set by an upstream auth layer.
const HeaderUserID = "X-User-ID"

// ClientIP extracts the client's IP address from the request.
// It checks X-Forwarded-For, X-Real-IP headers, and finally the request's RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ClientIPAndPath keys a request by client address and path, so each route has its own quota.
func ClientIPAndPath(r *http.Request) string {
	ip := ClientIP(r)
	if ip == "" {
		return ""
	}
	return ip + ":" + r.URL.Path
}

// UserOrClientIP keys a request by authenticated user when known, falling back to the client address.
func UserOrClientIP(r *http.Request) string {
	if user := strings.TrimSpace(r.Header.Get(HeaderUserID)); user != "" {
		return "user:" + user
	}
	return ClientIP(r)
}

// IdentifierFuncFor maps a configured identifier type to its extraction function.
func IdentifierFuncFor(kind config.IdentifierType) (func(*http.Request) string, error) {
	switch kind {
	case config.ClientIP:
		return ClientIP, nil
	case config.ClientIPAndPath:
		return ClientIPAndPath, nil
	case config.UserOrClientIP:
		return UserOrClientIP, nil
	default:
		return nil, fmt.Errorf("unsupported identifier '%s'", kind)
	}
}
