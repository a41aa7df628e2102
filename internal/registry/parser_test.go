package registry

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"DE-0004-12345", "DE-0004-12345"},
		{"de-0004-12345", "DE-0004-12345"},
		{" nl-123456 ", "NL-123456"},
		{"GB 1234 5678", "GB12345678"},
		{"X", ""},
		{"", ""},
		{"12-3456-7890", ""},       // must start with country letters
		{"DE-!!", ""},              // invalid characters
		{"DE-0004-123456789012345678901", ""}, // too long
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeTag(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeTag(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

const sampleListing = `
<html><body>
<div class="animal-record">
  <div class="field"><span class="field-label">Ear tag</span><span class="field-value">DE-0004-12345</span></div>
  <div class="field"><span class="field-label">Breed</span><span class="field-value">Angus</span></div>
  <div class="field"><span class="field-label">Sex</span><span class="field-value">Female</span></div>
  <div class="field"><span class="field-label">Date of birth</span><span class="field-value">2023-04-17</span></div>
  <div class="field"><span class="field-label">Holding</span><span class="field-value">Hof Meyer</span></div>
  <div class="field"><span class="field-label">Status</span><span class="field-value">Registered</span></div>
</div>
</body></html>`

const badgeListing = `
<html><body>
<div class="animal-record">
  <span class="status-badge">Active</span>
  <div class="field"><span class="field-label">Breed</span><span class="field-value">Hereford</span></div>
</div>
</body></html>`

func TestParseDocument(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleListing))
	if err != nil {
		t.Fatal(err)
	}

	rec := parseDocument(doc, "DE-0004-12345")
	if rec.Breed != "Angus" {
		t.Errorf("Breed = %q, want Angus", rec.Breed)
	}
	if rec.Sex != "female" {
		t.Errorf("Sex = %q, want female", rec.Sex)
	}
	if rec.Holding != "Hof Meyer" {
		t.Errorf("Holding = %q, want Hof Meyer", rec.Holding)
	}
	if rec.BirthDate == nil || rec.BirthDate.Format("2006-01-02") != "2023-04-17" {
		t.Errorf("BirthDate = %v, want 2023-04-17", rec.BirthDate)
	}
	if !rec.Registered {
		t.Error("Registered = false, want true")
	}
}

func TestParseDocumentStatusBadgeFallback(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(badgeListing))
	if err != nil {
		t.Fatal(err)
	}

	rec := parseDocument(doc, "DE-0004-99999")
	if rec.Breed != "Hereford" {
		t.Errorf("Breed = %q, want Hereford", rec.Breed)
	}
	if !rec.Registered {
		t.Error("Registered = false, want true (status badge)")
	}
}

func TestIsRegisteredStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"Registered", true},
		{"Active", true},
		{"registered since 2023", true},
		{"Unregistered", false},
		{"Deregistered", false},
		{"Inactive", false},
		{"Slaughtered", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isRegisteredStatus(tt.status); got != tt.want {
			t.Errorf("isRegisteredStatus(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestParseDocumentEmpty(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	if err != nil {
		t.Fatal(err)
	}

	rec := parseDocument(doc, "DE-0004-12345")
	if rec.Registered {
		t.Error("Registered = true for empty page, want false")
	}
	if rec.Breed != "" || rec.Holding != "" {
		t.Errorf("expected empty fields, got %+v", rec)
	}
}
