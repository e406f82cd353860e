// Package research - filter.go decides which search hits are worth fetching.
package research

import (
	"net/url"
	"strings"

	"github.com/jonathan/idea-scout/internal/types"
)

// skipDomains are aggregator, social and press sites that never describe a competitor's own product.
var skipDomains = []string{
	"wikipedia.org",
	"linkedin.com",
	"twitter.com",
	"facebook.com",
	"youtube.com",
	"reddit.com",
	"medium.com",
	"forbes.com",
	"techcrunch.com",
	"crunchbase.com",
	"g2.com",
	"capterra.com",
}

// SkipDomains returns a copy of the skipped domain list.
func SkipDomains() []string {
	return append([]string(nil), skipDomains...)
}

// ExtractDomain extracts the host from a URL. It handles schemeless URLs by prepending https://.
func ExtractDomain(urlStr string) string {
	if urlStr == "" {
		return ""
	}

	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}

	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// IsFromDomain reports whether a URL is on one of the domains or their subdomains.
func IsFromDomain(urlStr string, domains []string) bool {
	host := ExtractDomain(urlStr)
	if host == "" {
		return false
	}

	for _, domain := range domains {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// ShouldSkip reports whether a URL points at an aggregator or social site.
func ShouldSkip(urlStr string) bool {
	return IsFromDomain(urlStr, skipDomains)
}

// ScrapeCandidates returns up to limit URLs from results that are worth fetching, in result order.
func ScrapeCandidates(results []types.SearchResult, limit int) []string {
	var urls []string
	for _, r := range results {
		if limit > 0 && len(urls) >= limit {
			break
		}
		if r.URL == "" || ShouldSkip(r.URL) {
			continue
		}
		urls = append(urls, r.URL)
	}
	return urls
}
