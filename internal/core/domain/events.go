package domain

// Application event types fanned out to webhook endpoints. The wire
// representation stays a plain string for receiver compatibility.
const (
	EventUserJoinedCommunity   = "user.joined_community"
	EventUserLeftCommunity     = "user.left_community"
	EventRegistrationConfirmed = "event.registration_confirmed"
	EventRegistrationCancelled = "event.registration_cancelled"
	EventEventCancelled        = "event.cancelled"
	EventDiscussionCreated     = "discussion.created"
	EventPaymentCaptured       = "payment.captured"
	EventReferralCompleted     = "referral.completed"
	EventWebhookTest           = "webhook.test" // manual verification hook
)

// KnownEventTypes is the closed set accepted at the producer boundary.
var KnownEventTypes = map[string]struct{}{
	EventUserJoinedCommunity:   {},
	EventUserLeftCommunity:     {},
	EventRegistrationConfirmed: {},
	EventRegistrationCancelled: {},
	EventEventCancelled:        {},
	EventDiscussionCreated:     {},
	EventPaymentCaptured:       {},
	EventReferralCompleted:     {},
	EventWebhookTest:           {},
}

// IsKnownEventType reports whether eventType is part of the closed set.
func IsKnownEventType(eventType string) bool {
	_, ok := KnownEventTypes[eventType]
	return ok
}
