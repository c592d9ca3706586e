package request

import "time"

// Status is the lifecycle state of a help request. It starts at pending and
// transitions at most once; terminal rows are deleted when the owning user's
// poll observes them.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Decision is the provider's verdict on a pending request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Request links a user to a service provider with a lifecycle status. It holds
// back-references only; the referenced identities live in the auth store.
type Request struct {
	ID                string    `json:"_id"`
	UserID            string    `json:"userId"`
	ServiceProviderID string    `json:"serviceProviderId"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
}

// PollOutcome enumerates the answers a user-side status poll can produce.
// PollNone is the explicit no-active-request answer.
type PollOutcome string

const (
	PollAccepted PollOutcome = "accepted"
	PollRejected PollOutcome = "rejected"
	PollPending  PollOutcome = "pending"
	PollNone     PollOutcome = "none"
)

// Terminal reports whether the outcome ends the polling loop.
func (o PollOutcome) Terminal() bool {
	return o == PollAccepted || o == PollRejected
}

// PollResult is what a user poll returns. ProviderPhone is populated on
// PollAccepted so the client can trigger the auto-dial side effect.
type PollResult struct {
	Outcome       PollOutcome
	ProviderPhone string
}
