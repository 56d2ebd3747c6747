package types

import (
	"time"
)

// Interchange envelope type tags.
const (
	EnvelopeHomepage = "homepage_games"
	EnvelopeDetail   = "detailed_games"
	EnvelopeMerged   = "merged_scraped_games"
)

// DefaultDuration is used when no detail record supplies a play duration.
const DefaultDuration = "5-10 min"

// DefaultCategory is the source category used when neither pass supplies one.
const DefaultCategory = "Other"

// CandidateLink is a unique item link found on the listing page.
type CandidateLink struct {
	// URL is the canonical item URL and the join key across passes.
	URL string `json:"url"`

	// TitleHint is the anchor's visible text, if any.
	TitleHint string `json:"title_hint,omitempty"`

	DiscoveredAt time.Time `json:"discovered_at"`
}

// HomepageRecord is the discovery pass's view of one item.
type HomepageRecord struct {
	URL         string    `json:"url"          bson:"url"`
	Category    string    `json:"category"     bson:"category"`
	CollectedAt time.Time `json:"collected_at" bson:"collected_at"`
	Image       string    `json:"image"        bson:"image"`
	Title       string    `json:"title"        bson:"title"`
}

// DetailRecord is the detail pass's view of one item.
type DetailRecord struct {
	URL         string    `json:"url"             bson:"url"`
	Title       string    `json:"title"           bson:"title"`
	IframeURL   string    `json:"iframe_url"      bson:"iframe_url"`
	Description string    `json:"description"     bson:"description"`
	Features    []string  `json:"features"        bson:"features"`
	Favorites   int       `json:"favorites"       bson:"favorites"`
	Likes       int       `json:"likes"           bson:"likes"`
	Duration    string    `json:"duration"        bson:"duration"`
	Tags        []string  `json:"tags"            bson:"tags"`
	Category    string    `json:"category"        bson:"category"`
	Image       string    `json:"image,omitempty" bson:"image,omitempty"`
	CollectedAt time.Time `json:"collected_at"    bson:"collected_at"`
}

// FailureKind classifies why an item could not be harvested.
type FailureKind string

const (
	FailureTimeout  FailureKind = "timeout"
	FailureStatus   FailureKind = "status"
	FailureNetwork  FailureKind = "network"
	FailureParse    FailureKind = "parse"
	FailureCanceled FailureKind = "canceled"
)

// Failure records one item the detail pass gave up on.
type Failure struct {
	URL    string      `json:"url"    bson:"url"`
	Reason string      `json:"reason" bson:"reason"`
	Kind   FailureKind `json:"kind"   bson:"kind"`
	At     time.Time   `json:"at"     bson:"at"`
}

// MergedRecord joins a HomepageRecord with its optional DetailRecord.
type MergedRecord struct {
	URL         string    `json:"url"          bson:"url"`
	Title       string    `json:"title"        bson:"title"`
	Category    string    `json:"category"     bson:"category"`
	Image       string    `json:"image"        bson:"image"`
	IframeURL   string    `json:"iframe_url"   bson:"iframe_url"`
	Description string    `json:"description"  bson:"description"`
	Features    []string  `json:"features"     bson:"features"`
	Tags        []string  `json:"tags"         bson:"tags"`
	Favorites   int       `json:"favorites"    bson:"favorites"`
	Likes       int       `json:"likes"        bson:"likes"`
	Duration    string    `json:"duration"     bson:"duration"`
	CollectedAt time.Time `json:"collected_at" bson:"collected_at"`

	// HasDetail is false when the detail pass produced nothing for URL.
	HasDetail bool `json:"has_detail" bson:"has_detail"`
}

// Control is one input binding shown next to a game.
type Control struct {
	Key    string `json:"key"    bson:"key"`
	Action string `json:"action" bson:"action"`
}

// TargetGameRecord is the record shape consumed by the front-end catalog.
type TargetGameRecord struct {
	ID          int       `json:"id"          bson:"id"`
	Title       string    `json:"title"       bson:"title"`
	Image       string    `json:"image"       bson:"image"`
	Description string    `json:"description" bson:"description"`
	Features    []string  `json:"features"    bson:"features"`
	IsNew       bool      `json:"isNew"       bson:"isNew"`
	Iframe      string    `json:"iframe"      bson:"iframe"`
	Controls    []Control `json:"controls"    bson:"controls"`
	Category    string    `json:"category"    bson:"category"`
	PlayCount   int       `json:"playCount"   bson:"playCount"`
	Likes       int       `json:"likes"       bson:"likes"`
	Favorites   int       `json:"favorites"   bson:"favorites"`
	Duration    string    `json:"duration"    bson:"duration"`
}

// Envelope wraps a record collection persisted between stages.
type Envelope[T any] struct {
	Type        string    `json:"type"`
	TotalCount  int       `json:"total_count"`
	CollectedAt time.Time `json:"collected_at"`
	Games       []T       `json:"games"`
	Failures    []Failure `json:"failures,omitempty"`
}

// NewEnvelope wraps records under the given type tag.
func NewEnvelope[T any](typeTag string, records []T) *Envelope[T] {
	if records == nil {
		records = []T{}
	}
	return &Envelope[T]{
		Type:        typeTag,
		TotalCount:  len(records),
		CollectedAt: time.Now().UTC(),
		Games:       records,
	}
}
