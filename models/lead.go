// Package models defines data structures shared by the lead scanner.
package models

import (
	"strings"
	"time"
)

// Tier is the confidence bucket assigned to a discovered address.
type Tier string

const (
	TierHighValue Tier = "high_value"
	TierTeamInbox Tier = "team_inbox"
	TierEmployee  Tier = "employee"
	TierGeneric   Tier = "generic"
)

// Status reports the outcome of one discovery request.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusNoResults Status = "no_results"
	StatusError     Status = "error"
)

// ErrorKind separates failures a caller should handle differently.
type ErrorKind string

const (
	ErrorConfiguration ErrorKind = "configuration"
	ErrorInvalidTarget ErrorKind = "invalid_target"
	ErrorFetch         ErrorKind = "fetch"
	ErrorProvider      ErrorKind = "provider"
	ErrorInternal      ErrorKind = "internal"
)

// Lead is a single address believed to belong to the target.
type Lead struct {
	Email      string `csv:"email" json:"email"`
	Source     string `csv:"source" json:"source"`
	Confidence Tier   `csv:"confidence" json:"confidence"`

	// Normalized is the lower-cased address used for comparisons only.
	Normalized string `csv:"-" json:"-"`
}

// NewLead builds a lead and fills the comparison key.
func NewLead(email, source string, tier Tier) Lead {
	return Lead{
		Email:      email,
		Source:     source,
		Confidence: tier,
		Normalized: strings.ToLower(email),
	}
}

// RelatedLink is a search result surfaced alongside deep-search leads.
type RelatedLink struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// ErrorInfo describes why a request failed.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Result is the response of one discovery request.
type Result struct {
	Status       Status        `json:"status"`
	Source       string        `json:"source"`
	Target       string        `json:"target"`
	Domain       string        `json:"domain,omitempty"`
	Leads        []Lead        `json:"leads"`
	MetaTitle    string        `json:"meta_title,omitempty"`
	RelatedLinks []RelatedLink `json:"related_links,omitempty"`
	Error        *ErrorInfo    `json:"error,omitempty"`
	PagesFetched int           `json:"pages_fetched,omitempty"`
	QueriesRun   int           `json:"queries_run,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
	ScannedAt    time.Time     `json:"scanned_at"`
}

// Emails returns the bare address strings in result order.
func (r *Result) Emails() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Leads))
	for _, lead := range r.Leads {
		out = append(out, lead.Email)
	}
	return out
}

// Message returns the error message, if any.
func (r *Result) Message() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return r.Error.Message
}
