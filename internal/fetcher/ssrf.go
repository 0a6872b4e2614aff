package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// privateRanges lists every range fetchUrlSafe must refuse, per the SSRF
// guard table: private/link-local/loopback/CGNAT for IPv4, plus their
// IPv6 equivalents. IPv4-mapped IPv6 addresses are unmapped before the
// check, so "::ffff:127.0.0.1" is caught by the IPv4 loopback prefix.
var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

func isPrivateAddr(addr netip.Addr) bool {
	if addr.Is4In6() {
		addr = addr.Unmap()
	}
	for _, r := range privateRanges {
		if r.Contains(addr) {
			return true
		}
	}
	return false
}

// checkSSRF rejects localhost, *.local, literal private-range IPs, and
// hostnames that resolve to a private address. It runs before every
// request and every followed redirect.
func checkSSRF(ctx context.Context, host string) *FetchError {
	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".local") {
		return &FetchError{Message: fmt.Sprintf("host %q is localhost", host), Cause: CauseLocalhost}
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if isPrivateAddr(addr) {
			return &FetchError{Message: fmt.Sprintf("host %q is a private address", host), Cause: CausePrivateIP}
		}
		return nil
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return &FetchError{Message: fmt.Sprintf("failed to resolve host %q: %v", host, err), Cause: CauseFetchFailed}
	}
	for _, a := range addrs {
		addr, ok := netip.AddrFromSlice(a.IP)
		if !ok {
			continue
		}
		if isPrivateAddr(addr) {
			return &FetchError{Message: fmt.Sprintf("host %q resolves to a private address", host), Cause: CausePrivateIP}
		}
	}
	return nil
}
