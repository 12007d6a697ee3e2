package domain

import (
	"time"
)

// Status of a subscriber record that is present in the store.
const StatusActive = "active"

// Unknown is the fallback for best-effort labels the caller did not supply.
const Unknown = "unknown"

type SubscriberRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribedAt"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
	IPAddress    string    `json:"ipAddress"`
	UserAgent    string    `json:"userAgent"`
}

// Provenance is request metadata captured at subscribe time for audit only.
type Provenance struct {
	IPAddress string
	UserAgent string
}

type SubscribeRequest struct {
	Email  string `json:"email"`
	Source string `json:"source,omitempty"`
}

type SubscribeResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	AlreadySubscribed bool   `json:"alreadySubscribed,omitempty"`
}

// ExportRow is the projection of a SubscriberRecord used by exports.
type ExportRow struct {
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribedAt"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
}
