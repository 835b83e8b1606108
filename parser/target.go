package parser

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/aluiziolira/go-scrape-leads/models"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidTarget is returned when input cannot be turned into a fetchable
// site.
var ErrInvalidTarget = errors.New("invalid target")

// NormalizeTarget turns a bare domain, a URL, or a www-prefixed host into a
// fetchable base URL and a bare comparison domain. It performs no network
// access and never panics on malformed input.
func NormalizeTarget(raw string) (models.Target, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return models.Target{}, fmt.Errorf("%w: empty input", ErrInvalidTarget)
	}
	if strings.ContainsAny(input, " \t\r\n") {
		return models.Target{}, fmt.Errorf("%w: %q contains whitespace", ErrInvalidTarget, input)
	}

	withScheme := input
	if !strings.Contains(input, "://") {
		withScheme = "https://" + strings.TrimPrefix(input, "//")
	}

	parsed, err := url.Parse(withScheme)
	if err != nil {
		return models.Target{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return models.Target{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, parsed.Scheme)
	}

	host := strings.ToLower(strings.TrimSuffix(parsed.Hostname(), "."))
	domain := strings.TrimPrefix(host, "www.")
	if err := validateHost(domain); err != nil {
		return models.Target{}, err
	}

	hostPort := host
	if port := parsed.Port(); port != "" {
		hostPort = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		hostPort = "[" + host + "]"
	}
	base := scheme + "://" + hostPort

	start := &url.URL{
		Scheme:   scheme,
		Host:     hostPort,
		Path:     parsed.Path,
		RawQuery: parsed.RawQuery,
	}
	if start.Path == "" {
		start.Path = "/"
	}

	return models.Target{
		Input:    input,
		BaseURL:  base,
		StartURL: start.String(),
		Domain:   domain,
		Company:  CompanyGuess(domain),
	}, nil
}

func validateHost(host string) error {
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidTarget)
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if !strings.Contains(host, ".") {
		return fmt.Errorf("%w: host %q has no dot", ErrInvalidTarget, host)
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return fmt.Errorf("%w: bad label in %q", ErrInvalidTarget, host)
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return fmt.Errorf("%w: bad label in %q", ErrInvalidTarget, host)
		}
		for _, r := range label {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
				return fmt.Errorf("%w: illegal character %q in %q", ErrInvalidTarget, r, host)
			}
		}
	}
	if suffix, _ := publicsuffix.PublicSuffix(host); suffix == host {
		return fmt.Errorf("%w: %q is a public suffix", ErrInvalidTarget, host)
	}
	return nil
}

// CompanyGuess derives a company name from the leftmost label of the
// registrable domain, e.g. "shop.acme.co.uk" -> "Acme".
func CompanyGuess(domain string) string {
	if domain == "" || net.ParseIP(domain) != nil {
		return ""
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil || registrable == "" {
		registrable = domain
	}
	label, _, _ := strings.Cut(registrable, ".")
	label = strings.ReplaceAll(label, "-", " ")
	return cases.Title(language.English).String(label)
}

// SameSite reports whether host is domain or one of its subdomains. Both
// are compared without a leading "www.".
func SameSite(host, domain string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	domain = strings.TrimPrefix(strings.ToLower(domain), "www.")
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
