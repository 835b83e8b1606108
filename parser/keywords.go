package parser

import "strings"

// KeywordSet is a versioned keyword table. Tuning a heuristic means editing
// a table and bumping its version, never touching matching logic.
type KeywordSet struct {
	Name    string
	Version int
	Words   []string
}

// shortKeyword words must equal a whole local-part token; longer words match
// as substrings. This keeps "cto" from matching "hector".
const shortKeyword = 3

// Match reports whether the lower-cased local part hits any keyword.
func (k KeywordSet) Match(local string) bool {
	local = strings.ToLower(local)
	tokens := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+' || r == '%'
	})
	for _, word := range k.Words {
		if len(word) <= shortKeyword {
			for _, tok := range tokens {
				if tok == word {
					return true
				}
			}
			continue
		}
		if strings.Contains(local, word) {
			return true
		}
	}
	return false
}

// DecisionMakerKeywords mark addresses that likely reach a decision maker.
var DecisionMakerKeywords = KeywordSet{
	Name:    "decision_maker",
	Version: 3,
	Words: []string{
		"ceo", "cfo", "cto", "coo", "cmo", "vp",
		"founder", "owner", "president", "director", "head", "chief",
		"partner", "principal", "marketing", "sales", "growth", "business",
	},
}

// TeamInboxKeywords mark shared mailboxes.
var TeamInboxKeywords = KeywordSet{
	Name:    "team_inbox",
	Version: 3,
	Words: []string{
		"info", "contact", "support", "hello", "admin", "office", "team",
		"help", "enquiries", "inquiries", "service", "careers", "jobs",
		"press", "billing", "hr",
	},
}

// NoiseTokensVersion identifies the NoiseTokens and NoiseSuffixes revision.
const NoiseTokensVersion = 3

// NoiseSuffixes end asset filenames that look like addresses, e.g.
// logo@2x.png. They only match at the end of a candidate.
var NoiseSuffixes = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".bmp", ".tiff", ".avif",
}

// NoiseTokens are substrings that disqualify a syntactically valid candidate.
var NoiseTokens = []string{
	"@2x.", "@3x.",
	// placeholders
	"@example.com", "@example.org", "@example.net",
	"@domain.com", "yourdomain", "yourname", "your-email", "youremail",
	"email@email", "user@domain", "name@company", "test@test", "sample@",
	// SDK and hosting endpoints
	"sentry.io", "sentry-next.wixpress.com", "wixpress.com", "@sentry",
	"cloudflareinsights.com", "cdnjs.cloudflare.com", "u003e",
}

// WebmailDomains are personal mailbox providers.
var WebmailDomains = []string{
	"gmail.com", "googlemail.com", "outlook.com", "hotmail.com", "live.com",
	"msn.com", "icloud.com", "me.com", "aol.com", "proton.me",
	"protonmail.com", "yahoo.", "gmx.",
}
