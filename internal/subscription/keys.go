package subscription

import "time"

// Key namespace shared with existing store instances.
const (
	indexKey             = "all_subscriptions"
	sourceCountersKey    = "subscription_sources"
	unsubscribeReasonKey = "unsubscribe_reasons"
)

func subscriptionKey(email string) string {
	return "subscription:" + email
}

func unsubscribeKey(email string) string {
	return "unsubscribe:" + email
}

func dailyKey(day string) string {
	return "daily_subscriptions:" + day
}

// dayStamp formats t as its UTC calendar date.
func dayStamp(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
