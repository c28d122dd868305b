package notify

import "clipforge/internal/library"

// Event is one progress or status update for a media item. Fields beyond the
// id and progress are present only when the triggering transition set them;
// subscribers must tolerate partial payloads.
type Event struct {
	ItemID      string            `json:"id"`
	Status      library.Status    `json:"status,omitempty"`
	Sensitivity library.Verdict   `json:"sensitivity,omitempty"`
	Progress    int               `json:"progress"`
	Variants    []library.Variant `json:"variants,omitempty"`
}

// ProgressEvent builds the payload for an in-flight progress update.
func ProgressEvent(itemID string, progress int) Event {
	return Event{ItemID: itemID, Progress: progress}
}

// StatusEvent builds the payload for a status transition, mirroring the
// committed item state.
func StatusEvent(item *library.Item) Event {
	evt := Event{
		ItemID:   item.ID,
		Status:   item.Status,
		Progress: item.Progress,
		Variants: item.Variants,
	}
	if item.Sensitivity != library.VerdictUnchecked {
		evt.Sensitivity = item.Sensitivity
	}
	return evt
}
