package api

import "clipforge/internal/library"

// Variant describes one encoded rendition in a transport-friendly format.
type Variant struct {
	Quality     string `json:"quality"`
	BitrateKbps int    `json:"bitrateKbps"`
	StoragePath string `json:"storagePath,omitempty"`
}

// MediaItem describes a library entry as served by the daemon.
type MediaItem struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenantId"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	SizeBytes       int64     `json:"sizeBytes"`
	Status          string    `json:"status"`
	Sensitivity     string    `json:"sensitivity"`
	Progress        int       `json:"progress"`
	DurationSeconds *float64  `json:"durationSeconds,omitempty"`
	Variants        []Variant `json:"variants"`
	CreatedAt       string    `json:"createdAt,omitempty"`
	UpdatedAt       string    `json:"updatedAt,omitempty"`
}

// MediaListResponse wraps a collection of media items.
type MediaListResponse struct {
	Items []MediaItem `json:"items"`
}

// StatusResponse aggregates daemon runtime information.
type StatusResponse struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	LibraryDBPath string         `json:"libraryDbPath"`
	LockFilePath  string         `json:"lockFilePath"`
	QueueDepth    int            `json:"queueDepth"`
	ItemCounts    map[string]int `json:"itemCounts"`
}

// ErrorResponse is the body of every non-2xx JSON answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromItem converts a library record into its transport form.
func FromItem(item *library.Item) MediaItem {
	variants := make([]Variant, 0, len(item.Variants))
	for _, v := range item.Variants {
		variants = append(variants, Variant{
			Quality:     string(v.Quality),
			BitrateKbps: v.BitrateKbps,
			StoragePath: v.StoragePath,
		})
	}
	out := MediaItem{
		ID:              item.ID,
		TenantID:        item.TenantID,
		Title:           item.Title,
		Description:     item.Description,
		SizeBytes:       item.SizeBytes,
		Status:          string(item.Status),
		Sensitivity:     string(item.Sensitivity),
		Progress:        item.Progress,
		DurationSeconds: item.DurationSeconds,
		Variants:        variants,
	}
	if !item.CreatedAt.IsZero() {
		out.CreatedAt = item.CreatedAt.Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		out.UpdatedAt = item.UpdatedAt.Format(dateTimeFormat)
	}
	return out
}

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"
