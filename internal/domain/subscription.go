package domain

import "time"

// DefaultUnsubscribeReason is recorded when the caller gives no reason.
const DefaultUnsubscribeReason = "user_request"

// MaxStatsWindowDays bounds the dailyStats window. Each day in the window
// costs one store read.
const MaxStatsWindowDays = 366

type UnsubscribeRecord struct {
	Email                 string    `json:"email"`
	UnsubscribedAt        time.Time `json:"unsubscribedAt"`
	OriginalSubscribeDate time.Time `json:"originalSubscribeDate"`
	Source                string    `json:"source"`
	Reason                string    `json:"reason"`
	DaysSubscribed        int       `json:"daysSubscribed"`
}

type UnsubscribeRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason,omitempty"`
}

// Stats is the aggregate view served by the stats endpoint.
type Stats struct {
	Total              int              `json:"total"`
	Subscribers        []string         `json:"subscribers"`
	SourceBreakdown    map[string]int64 `json:"sourceBreakdown"`
	DailyStats         map[string]int64 `json:"dailyStats"`
	UnsubscribeReasons map[string]int64 `json:"unsubscribeReasons"`
}
