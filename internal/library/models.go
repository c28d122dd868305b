package library

import (
	"sort"
	"time"
)

// Status represents the lifecycle of a media item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSafe       Status = "safe"
	StatusFlagged    Status = "flagged"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusSafe,
	StatusFlagged,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Valid reports whether the status is a known lifecycle value.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusSafe, StatusFlagged, StatusFailed:
		return true
	}
	return false
}

// Verdict is the moderation outcome recorded alongside the status.
type Verdict string

const (
	VerdictUnchecked Verdict = "unchecked"
	VerdictSafe      Verdict = "safe"
	VerdictFlagged   Verdict = "flagged"
)

// Quality labels one encoded rendition tier.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// EncodeOrder is the fixed order in which renditions are produced.
var EncodeOrder = []Quality{QualityHigh, QualityMedium, QualityLow}

// KnownQuality reports whether the label names a configured rendition tier.
func KnownQuality(q Quality) bool {
	for _, known := range EncodeOrder {
		if q == known {
			return true
		}
	}
	return false
}

// Variant is one produced quality rendition of a media item.
type Variant struct {
	Quality     Quality `json:"quality"`
	BitrateKbps int     `json:"bitrate_kbps"`
	StoragePath string  `json:"storage_path"`
}

// Item represents a media item persisted in SQLite.
type Item struct {
	ID              string
	TenantID        string
	Title           string
	Description     string
	SourcePath      string
	SizeBytes       int64
	Status          Status
	Sensitivity     Verdict
	Progress        int
	DurationSeconds *float64
	Variants        []Variant
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// VariantFor returns the variant with the given quality label, or nil.
func (i *Item) VariantFor(quality Quality) *Variant {
	for idx := range i.Variants {
		if i.Variants[idx].Quality == quality {
			return &i.Variants[idx]
		}
	}
	return nil
}

// VariantsByBitrate returns the item's variants ordered from highest to
// lowest bitrate. Used for best-available fallback during streaming.
func (i *Item) VariantsByBitrate() []Variant {
	ordered := append([]Variant(nil), i.Variants...)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].BitrateKbps > ordered[b].BitrateKbps
	})
	return ordered
}
