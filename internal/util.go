package util

import (
	"net"
	"net/url"
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

// NormalizeDomain 规范化域名
func NormalizeDomain(domain string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(domain)), ".")
}

// ExtractHost returns the host part of rawURL. Scheme-less input such as
// "ads.example.com/banner.js" is accepted. IP literals and anything that is not
// a valid domain name are rejected. The case of ASCII hosts is preserved.
func ExtractHost(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}
	if !hasScheme(rawURL) {
		rawURL = "http://" + strings.TrimPrefix(rawURL, "//")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	host := strings.TrimRight(u.Hostname(), ".")
	if host == "" || net.ParseIP(host) != nil {
		return "", false
	}

	if !isASCII(host) {
		host, err = idna.Lookup.ToASCII(host)
		if err != nil {
			return "", false
		}
	}

	if _, ok := dns.IsDomainName(host); !ok {
		return "", false
	}
	return host, true
}

// IsSubdomainOf reports whether host equals domain or is one of its
// subdomains. The comparison ignores case.
func IsSubdomainOf(host, domain string) bool {
	if len(host) < len(domain) {
		return false
	}
	if len(host) == len(domain) {
		return strings.EqualFold(host, domain)
	}
	return host[len(host)-len(domain)-1] == '.' && strings.EqualFold(host[len(host)-len(domain):], domain)
}

// ReverseLabels turns "sub.example.com" into "com.example.sub.". The trailing
// dot keeps prefix lookups on label boundaries.
func ReverseLabels(domain string) string {
	labels := dns.SplitDomainName(domain)
	if len(labels) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(len(domain) + 1)
	for i := len(labels) - 1; i >= 0; i-- {
		b.WriteString(labels[i])
		b.WriteByte('.')
	}
	return b.String()
}

// hasScheme reports whether rawURL starts with "scheme://". A "://" inside the
// path, query or fragment does not count.
func hasScheme(rawURL string) bool {
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return false
	}
	end := strings.IndexAny(rawURL, "/?#")
	return end == idx+1
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
