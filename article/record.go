package article

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidRecord is returned when a stored record is missing required
// fields or carries malformed values.
var ErrInvalidRecord = errors.New("invalid article record")

// Record is a single scraped article. A record is written once per distinct
// URL and never modified afterwards; the URL is its identity.
type Record struct {
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	Author         string    `json:"author"`
	PublishedDate  Date      `json:"published_date"`
	PublishedText  string    `json:"published_text,omitempty"`
	Content        string    `json:"content"`
	ParagraphCount int       `json:"paragraph_count"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// wireRecord mirrors Record with pointer fields so that absent keys can be
// told apart from zero values.
type wireRecord struct {
	Title          *string    `json:"title"`
	URL            *string    `json:"url"`
	Author         *string    `json:"author"`
	PublishedDate  *Date      `json:"published_date"`
	PublishedText  string     `json:"published_text"`
	Content        *string    `json:"content"`
	ParagraphCount *int       `json:"paragraph_count"`
	FetchedAt      *time.Time `json:"fetched_at"`
}

// UnmarshalJSON decodes a record and rejects documents with missing
// required fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	var missing []string
	if w.Title == nil {
		missing = append(missing, "title")
	}
	if w.URL == nil {
		missing = append(missing, "url")
	}
	if w.Author == nil {
		missing = append(missing, "author")
	}
	if w.PublishedDate == nil {
		missing = append(missing, "published_date")
	}
	if w.Content == nil {
		missing = append(missing, "content")
	}
	if w.ParagraphCount == nil {
		missing = append(missing, "paragraph_count")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRecord, strings.Join(missing, ", "))
	}

	*r = Record{
		Title:          *w.Title,
		URL:            *w.URL,
		Author:         *w.Author,
		PublishedDate:  *w.PublishedDate,
		PublishedText:  w.PublishedText,
		Content:        *w.Content,
		ParagraphCount: *w.ParagraphCount,
	}
	if w.FetchedAt != nil {
		r.FetchedAt = *w.FetchedAt
	}

	return r.Validate()
}

// Validate checks the field-level invariants of a record.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is empty", ErrInvalidRecord)
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("%w: url: %v", ErrInvalidRecord, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url must use http or https scheme", ErrInvalidRecord)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host", ErrInvalidRecord)
	}

	if r.PublishedDate.IsZero() {
		return fmt.Errorf("%w: published_date is empty", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("%w: content is empty", ErrInvalidRecord)
	}
	if r.ParagraphCount < 1 {
		return fmt.Errorf("%w: paragraph_count must be positive, got %d", ErrInvalidRecord, r.ParagraphCount)
	}

	return nil
}
