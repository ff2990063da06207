package domain

// Tag is a notification exchanged over the cross-context channel.
type Tag string

const (
	// TagDataUpdated tells page contexts the joke collection changed.
	TagDataUpdated Tag = "data-updated"
	// TagFetchJokes asks the worker to refresh jokes from the remote source.
	TagFetchJokes Tag = "fetch-jokes"
	// TagFetchError reports a failed fetch-and-store cycle.
	TagFetchError Tag = "fetch-error"
)

// SyncTagSendData is the background sync registration tag for pending data.
// It is a sync registration, not a channel notification.
const SyncTagSendData = "send-data"

// IsKnownTag reports whether t belongs to the closed set of notifications.
func IsKnownTag(t Tag) bool {
	switch t {
	case TagDataUpdated, TagFetchJokes, TagFetchError:
		return true
	default:
		return false
	}
}
