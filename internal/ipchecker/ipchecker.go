// Package ipchecker resolves the client address of a request and guards
// handlers that should only answer clients from a trusted subnet.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/patric-chuzhbe/biolink/internal/logger"
)

// IPChecker holds the optional trusted subnet and the proxies whose
// forwarding headers are believed.
type IPChecker struct {
	trustedSubnet  *net.IPNet
	trustedProxies []*net.IPNet
}

// New parses trustedSubnet and trustedProxies in CIDR notation. An empty
// trustedSubnet yields a checker with no subnet, for which
// IsTrustedSubnetEmpty reports true. Without trustedProxies the forwarding
// headers are ignored and the client is always the peer address.
func New(trustedSubnet string, trustedProxies ...string) (*IPChecker, error) {
	checker := &IPChecker{}

	if trustedSubnet != "" {
		_, allowedNet, err := net.ParseCIDR(trustedSubnet)
		if err != nil {
			return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/New(): error while `net.ParseCIDR()` calling: %w", err)
		}
		checker.trustedSubnet = allowedNet
	}

	for _, proxy := range trustedProxies {
		_, proxyNet, err := net.ParseCIDR(proxy)
		if err != nil {
			return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/New(): error while parsing trusted proxy %q: %w", proxy, err)
		}
		checker.trustedProxies = append(checker.trustedProxies, proxyNet)
	}

	return checker, nil
}

// Check reports whether clientIP is inside the trusted subnet. It is false
// when no subnet is configured.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && clientIP != nil && checker.trustedSubnet.Contains(clientIP)
}

func (checker *IPChecker) isTrustedProxy(ip net.IP) bool {
	for _, proxyNet := range checker.trustedProxies {
		if proxyNet.Contains(ip) {
			return true
		}
	}

	return false
}

// GetClientIP returns the peer address of the request. Only when the peer is
// a trusted proxy, X-Real-IP and then the right-most X-Forwarded-For entry
// that is not itself a trusted proxy are used instead. Unparsable header
// values are skipped.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/GetClientIP(): error while `net.SplitHostPort()` calling: %w", err)
	}
	peer := net.ParseIP(host)
	if peer == nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/GetClientIP(): unparsable remote address %q", request.RemoteAddr)
	}

	if !checker.isTrustedProxy(peer) {
		return peer, nil
	}

	if ip := net.ParseIP(strings.TrimSpace(request.Header.Get("X-Real-IP"))); ip != nil {
		return ip, nil
	}

	hops := strings.Split(request.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip != nil && !checker.isTrustedProxy(ip) {
			return ip, nil
		}
	}

	return peer, nil
}

func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}

// TrustedOnly is an HTTP middleware answering 403 to clients outside the
// trusted subnet. Without a configured subnet every client passes.
func (checker *IPChecker) TrustedOnly(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if checker.IsTrustedSubnetEmpty() {
			h.ServeHTTP(response, request)
			return
		}

		clientIP, err := checker.GetClientIP(request)
		if err != nil {
			logger.Log.Debugln("Error calling the `checker.GetClientIP()`: ", err)
		}
		if err != nil || !checker.Check(clientIP) {
			response.WriteHeader(http.StatusForbidden)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
