package webhook

import (
	"time"

	"github.com/TimurManjosov/configship/internal/snapshot"
)

// Event types that can trigger webhooks
const (
	EventSnapshotLoaded   = "snapshot.loaded"
	EventSnapshotReplaced = "snapshot.replaced"
)

// Event represents a snapshot change event that will be sent to subscribed
// endpoints.
type Event struct {
	Type          string    `json:"event"`
	Timestamp     time.Time `json:"timestamp"`
	EnvironmentID string    `json:"environment"`
	CollectionID  string    `json:"collection"`
	ETag          string    `json:"etag"`
	Version       uint64    `json:"version"`
	Counts        Counts    `json:"counts"`
}

// Counts summarizes the snapshot contents.
type Counts struct {
	Features   int `json:"features"`
	Properties int `json:"properties"`
	Segments   int `json:"segments"`
}

// NewEvent builds an event from a snapshot. The first installed snapshot
// reports EventSnapshotLoaded, every later one EventSnapshotReplaced.
func NewEvent(snap *snapshot.Snapshot) Event {
	eventType := EventSnapshotReplaced
	if snap.Version <= 1 {
		eventType = EventSnapshotLoaded
	}
	return Event{
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		EnvironmentID: snap.EnvironmentID,
		CollectionID:  snap.CollectionID,
		ETag:          snap.ETag,
		Version:       snap.Version,
		Counts: Counts{
			Features:   len(snap.Features),
			Properties: len(snap.Properties),
			Segments:   len(snap.Segments),
		},
	}
}
