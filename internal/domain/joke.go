package domain

import "time"

// Joke is a two-part joke fetched from the remote source.
//
// ID comes from the remote and is the object key in the joke collection,
// so it is never omitted (0 is a valid remote id).
type Joke struct {
	ID       int64  `json:"id"`
	Setup    string `json:"setup"`
	Delivery string `json:"delivery"`
	Category string `json:"category,omitempty"`
}

// PendingItem is user data queued for background sync.
//
// ID is assigned by the embedded store on insert and is immutable afterwards.
type PendingItem struct {
	ID        int64     `json:"id,omitempty"`
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
}
