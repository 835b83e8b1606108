package parser

import (
	"reflect"
	"testing"

	"github.com/aluiziolira/go-scrape-leads/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		email    string
		domain   string
		expected models.Tier
	}{
		{"ceo@info.acme.com", "acme.com", models.TierHighValue},
		{"founder@acme.com", "acme.com", models.TierHighValue},
		{"CoFounder@acme.com", "acme.com", models.TierHighValue},
		{"sales-team@acme.com", "acme.com", models.TierHighValue},
		{"john.ceo@acme.com", "acme.com", models.TierHighValue},
		{"head.of.growth@gmail.com", "acme.com", models.TierHighValue},
		{"info@acme.com", "acme.com", models.TierTeamInbox},
		{"Support@acme.com", "acme.com", models.TierTeamInbox},
		{"hr@acme.com", "acme.com", models.TierTeamInbox},
		{"hector@acme.com", "acme.com", models.TierEmployee},
		{"chris@acme.com", "acme.com", models.TierEmployee},
		{"jane.doe@mail.acme.com", "acme.com", models.TierEmployee},
		{"jane.doe@gmail.com", "acme.com", models.TierGeneric},
		{"jane.doe@notacme.com", "acme.com", models.TierGeneric},
		{"jane.doe@acme.com", "", models.TierGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := Classify(tt.email, tt.domain); got != tt.expected {
				t.Errorf("Classify(%q, %q) = %q, want %q", tt.email, tt.domain, got, tt.expected)
			}
		})
	}
}

func TestKeywordSetMatch(t *testing.T) {
	set := KeywordSet{Name: "test", Version: 1, Words: []string{"vp", "director"}}
	tests := []struct {
		local    string
		expected bool
	}{
		{"vp", true},
		{"vp.sales", true},
		{"john_vp", true},
		{"vpn", false},
		{"marketingdirector", true},
		{"DIRECTOR", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.local, func(t *testing.T) {
			if got := set.Match(tt.local); got != tt.expected {
				t.Errorf("Match(%q) = %v, want %v", tt.local, got, tt.expected)
			}
		})
	}
}

func TestIsNoise(t *testing.T) {
	tests := []struct {
		email    string
		expected bool
	}{
		{"logo@2x.png", true},
		{"hero-banner@acme.JPG", true},
		{"john@example.com", true},
		{"you@yourdomain.com", true},
		{"abc123@sentry.io", true},
		{"605a7baede844d278b89dc95ae0a9123@sentry-next.wixpress.com", true},
		{"jane@acme.com", false},
		{"pngsmith@acme.com", false},
		{"jane.tiffany@acme.com", false},
		{"tom.gifford@acme.com", false},
		{"owner@freedomain.com", false},
		{"alice@cloudflare.com", false},
		{"bob@2xtreme.io", false},
		{"placeholder@domain.com", true},
		{"beacon@static.cloudflareinsights.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsNoise(tt.email); got != tt.expected {
				t.Errorf("IsNoise(%q) = %v, want %v", tt.email, got, tt.expected)
			}
		})
	}
}

func TestFilterNoise(t *testing.T) {
	input := []string{"icon@acme.png", "ceo@acme.com", "name@example.com", "info@acme.com"}
	expected := []string{"ceo@acme.com", "info@acme.com"}
	if got := FilterNoise(input); !reflect.DeepEqual(got, expected) {
		t.Errorf("FilterNoise() = %v, want %v", got, expected)
	}
}

func TestIsWebmail(t *testing.T) {
	tests := []struct {
		email    string
		expected bool
	}{
		{"jane@gmail.com", true},
		{"jane@Yahoo.co.uk", true},
		{"jane@gmx.de", true},
		{"jane@acme.com", false},
		{"jane@notgmail.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsWebmail(tt.email); got != tt.expected {
				t.Errorf("IsWebmail(%q) = %v, want %v", tt.email, got, tt.expected)
			}
		})
	}
}

func TestExtractFilterClassifyIsDeterministic(t *testing.T) {
	text := "CEO: ceo@acme.com | info@acme.com | logo@2x.png | jane@acme.com | Info@Acme.com"
	run := func() []models.Lead {
		var leads []models.Lead
		for _, email := range FilterNoise(ExtractText(text)) {
			leads = append(leads, models.NewLead(email, "https://acme.com", Classify(email, "acme.com")))
		}
		return leads
	}

	first := run()
	for i := 0; i < 5; i++ {
		if again := run(); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d = %v, want %v", i, again, first)
		}
	}
	if len(first) != 4 {
		t.Errorf("got %d leads, want 4: %v", len(first), first)
	}
}
