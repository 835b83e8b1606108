package discovery

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-leads/parser"
)

// RelevancePolicy decides whether an address found in search results
// belongs to the target.
type RelevancePolicy interface {
	Name() string
	Keep(email, domain string) bool
}

type relevanceFunc struct {
	name string
	keep func(email, domain string) bool
}

func (r relevanceFunc) Name() string { return r.name }

func (r relevanceFunc) Keep(email, domain string) bool { return r.keep(email, domain) }

func containsDomain(email, domain string) bool {
	return domain != "" && strings.Contains(strings.ToLower(email), strings.ToLower(domain))
}

var (
	// StrictPolicy keeps addresses that contain the target domain.
	StrictPolicy RelevancePolicy = relevanceFunc{name: "strict", keep: containsDomain}

	// WebmailPolicy also keeps personal webmail addresses, which executives
	// often list in public bios.
	WebmailPolicy RelevancePolicy = relevanceFunc{name: "webmail", keep: func(email, domain string) bool {
		return containsDomain(email, domain) || parser.IsWebmail(email)
	}}

	// NoFilterPolicy keeps everything that survived the noise filter.
	NoFilterPolicy RelevancePolicy = relevanceFunc{name: "none", keep: func(string, string) bool {
		return true
	}}
)

// PolicyByName returns the named relevance policy.
func PolicyByName(name string) (RelevancePolicy, error) {
	switch name {
	case "", StrictPolicy.Name():
		return StrictPolicy, nil
	case WebmailPolicy.Name():
		return WebmailPolicy, nil
	case NoFilterPolicy.Name():
		return NoFilterPolicy, nil
	default:
		return nil, fmt.Errorf("unknown relevance policy %q", name)
	}
}
