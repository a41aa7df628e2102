package registry

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// AnimalRecord is what the public livestock-registry listing exposes for
// one ear tag.
type AnimalRecord struct {
	TagID      string     `json:"tag_id"`
	Breed      string     `json:"breed,omitempty"`
	Sex        string     `json:"sex,omitempty"`
	Holding    string     `json:"holding,omitempty"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Registered bool       `json:"registered"`
	FetchedAt  time.Time  `json:"fetched_at"`
}

type Parser struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
	maxRetries int
}

func NewParser(baseURL string, timeoutMS, maxRetries int, log *zap.Logger) *Parser {
	return &Parser{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutMS) * time.Millisecond,
		},
		log:        log,
		maxRetries: maxRetries,
	}
}

// FetchAnimal retrieves and parses the registry listing for an ear tag.
func (p *Parser) FetchAnimal(ctx context.Context, tagID string) (*AnimalRecord, error) {
	tag := NormalizeTag(tagID)
	if tag == "" {
		return nil, fmt.Errorf("invalid ear tag %q", tagID)
	}

	url := fmt.Sprintf("%s/animals/%s", p.baseURL, tag)

	var doc *goquery.Document
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			// Listing absent: the tag is simply not registered.
			return &AnimalRecord{TagID: tag, Registered: false, FetchedAt: time.Now()}, nil
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			continue
		}

		doc, err = goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		break
	}

	if lastErr != nil {
		return nil, lastErr
	}

	return parseDocument(doc, tag), nil
}

func parseDocument(doc *goquery.Document, tag string) *AnimalRecord {
	rec := &AnimalRecord{
		TagID:     tag,
		FetchedAt: time.Now(),
	}

	doc.Find(".animal-record .field").Each(func(i int, s *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(s.Find(".field-label").Text()))
		value := strings.TrimSpace(s.Find(".field-value").Text())
		if value == "" {
			return
		}
		switch {
		case strings.Contains(label, "breed"):
			rec.Breed = value
		case strings.Contains(label, "sex"):
			rec.Sex = strings.ToLower(value)
		case strings.Contains(label, "holding"), strings.Contains(label, "farm"):
			rec.Holding = value
		case strings.Contains(label, "birth"):
			if t, err := time.Parse("2006-01-02", value); err == nil {
				rec.BirthDate = &t
			}
		case strings.Contains(label, "status"):
			rec.Registered = isRegisteredStatus(value)
		}
	})

	// Fallback: some registries render the status as a header badge.
	if !rec.Registered {
		badge := strings.TrimSpace(doc.Find(".animal-record .status-badge").First().Text())
		if badge != "" {
			rec.Registered = isRegisteredStatus(badge)
		}
	}

	return rec
}

func isRegisteredStatus(s string) bool {
	s = strings.ToLower(s)
	if strings.Contains(s, "unregistered") || strings.Contains(s, "deregistered") || strings.Contains(s, "inactive") {
		return false
	}
	return strings.Contains(s, "registered") || strings.Contains(s, "active")
}

var tagPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9\-]{4,18}$`)

// NormalizeTag uppercases an ear-tag id and strips surrounding noise.
// Tags follow the ISO country-prefixed form, e.g. "DE-0004-12345".
func NormalizeTag(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	if !tagPattern.MatchString(s) {
		return ""
	}
	return s
}
