package webhook

import (
	"testing"

	"github.com/TimurManjosov/configship/internal/testutil"
)

func TestNewEvent(t *testing.T) {
	first := NewEvent(testutil.BuildSnapshot(t, testutil.SampleConfiguration(), "production", 1))
	if first.Type != EventSnapshotLoaded {
		t.Errorf("version 1 event = %q, want %q", first.Type, EventSnapshotLoaded)
	}
	if first.EnvironmentID != "production" || first.CollectionID != "default" {
		t.Errorf("scope = %s/%s", first.EnvironmentID, first.CollectionID)
	}
	if first.ETag == "" {
		t.Error("missing etag")
	}
	if first.Counts.Features != 2 || first.Counts.Properties != 1 || first.Counts.Segments != 2 {
		t.Errorf("counts = %+v", first.Counts)
	}

	later := NewEvent(testutil.BuildSnapshot(t, testutil.SampleConfiguration(), "production", 7))
	if later.Type != EventSnapshotReplaced {
		t.Errorf("version 7 event = %q, want %q", later.Type, EventSnapshotReplaced)
	}
	if later.Version != 7 {
		t.Errorf("version = %d, want 7", later.Version)
	}
}
