package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	log := NewEventLog(db)
	reg := DefaultRegistry()

	_, err := log.Append(&DownloadCompleted{
		BaseEvent: NewBaseEvent(EventDownloadCompleted, EntityAsset, "a"),
		AssetID:   "a",
		LocalPath: "/cache/a.png",
	})
	require.NoError(t, err)

	raws, err := log.ForEntity(EntityAsset, "a")
	require.NoError(t, err)
	require.Len(t, raws, 1)

	e, err := reg.Unmarshal(raws[0])
	require.NoError(t, err)

	done, ok := e.(*DownloadCompleted)
	require.True(t, ok, "expected *DownloadCompleted, got %T", e)
	assert.Equal(t, "a", done.AssetID)
	assert.Equal(t, "/cache/a.png", done.LocalPath)
	assert.Equal(t, EntityAsset, done.EntityType())
}

func TestRegistry_UnknownType(t *testing.T) {
	reg := DefaultRegistry()
	_, err := reg.Unmarshal(RawEvent{EventType: "nope", Payload: "{}"})
	assert.Error(t, err)
}

func TestRegistry_BadPayload(t *testing.T) {
	reg := DefaultRegistry()
	_, err := reg.Unmarshal(RawEvent{EventType: EventDownloadFailed, Payload: "{"})
	assert.Error(t, err)
}
