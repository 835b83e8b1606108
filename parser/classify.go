package parser

import (
	"strings"

	"github.com/aluiziolira/go-scrape-leads/models"
)

// IsNoise reports whether email ends in an asset extension or contains a
// denylisted token.
func IsNoise(email string) bool {
	lower := strings.ToLower(email)
	for _, suffix := range NoiseSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	for _, token := range NoiseTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// FilterNoise drops denylisted candidates, keeping order.
func FilterNoise(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !IsNoise(c) {
			out = append(out, c)
		}
	}
	return out
}

// SplitEmail returns the local part and lower-cased domain.
func SplitEmail(email string) (local, domain string) {
	i := strings.LastIndexByte(email, '@')
	if i < 0 {
		return email, ""
	}
	return email[:i], strings.ToLower(email[i+1:])
}

// IsWebmail reports whether the address belongs to a personal mail provider.
func IsWebmail(email string) bool {
	_, domain := SplitEmail(email)
	for _, provider := range WebmailDomains {
		if strings.HasSuffix(provider, ".") {
			if strings.HasPrefix(domain, provider) {
				return true
			}
			continue
		}
		if domain == provider {
			return true
		}
	}
	return false
}

// Classify assigns a tier from the local part. Decision-maker keywords win
// over shared-inbox keywords; the rest split on whether the address lives on
// the target domain.
func Classify(email, targetDomain string) models.Tier {
	local, domain := SplitEmail(email)
	switch {
	case DecisionMakerKeywords.Match(local):
		return models.TierHighValue
	case TeamInboxKeywords.Match(local):
		return models.TierTeamInbox
	case SameSite(domain, targetDomain):
		return models.TierEmployee
	default:
		return models.TierGeneric
	}
}
