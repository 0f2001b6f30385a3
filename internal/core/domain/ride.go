package domain

import "time"

// RideStatus represents the lifecycle state of a ride request.
type RideStatus string

const (
	RideStatusPending   RideStatus = "pending"
	RideStatusAccepted  RideStatus = "accepted"
	RideStatusRejected  RideStatus = "rejected"
	RideStatusCompleted RideStatus = "completed"
)

// RideStatuses lists every status in display order.
var RideStatuses = []RideStatus{
	RideStatusPending,
	RideStatusAccepted,
	RideStatusRejected,
	RideStatusCompleted,
}

// validRideTransitions defines the dispatch state machine. rejected exists in
// the ledger vocabulary but nothing in the engine moves a ride into it: a
// puller declining leaves the request pending for everyone else.
var validRideTransitions = map[RideStatus][]RideStatus{
	RideStatusPending:  {RideStatusAccepted},
	RideStatusAccepted: {RideStatusCompleted},
}

// CanTransitionTo reports whether a transition from s to next is valid.
func (s RideStatus) CanTransitionTo(next RideStatus) bool {
	for _, allowed := range validRideTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CompletionPoints is the fixed award a puller earns per completed ride.
const CompletionPoints = 100

const (
	MinRating = 1
	MaxRating = 5
)

// Ride is a single ride request and the authoritative record of its lifecycle.
type Ride struct {
	ID             string     `json:"id"`
	ConsumerID     string     `json:"consumer_id"`
	Destination    string     `json:"destination"`
	PickupLocation string     `json:"pickup_location,omitempty"`
	Status         RideStatus `json:"status"`
	PullerID       *string    `json:"puller_id"`
	CreatedAt      time.Time  `json:"created_at"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Rating         *int       `json:"rating,omitempty"`
	Review         *string    `json:"review,omitempty"`
	// DeclinedBy records pullers who passed on the request while it was pending.
	DeclinedBy     []string   `json:"-"`
}

// AssignedTo reports whether pullerID is the puller on record.
func (r *Ride) AssignedTo(pullerID string) bool {
	return r.PullerID != nil && *r.PullerID == pullerID
}

// Rated reports whether a rating has been stored.
func (r *Ride) Rated() bool {
	return r.Rating != nil
}

// RideEventType names a committed dispatch transition.
type RideEventType string

const (
	RideEventSubmitted RideEventType = "ride.submitted"
	RideEventClaimed   RideEventType = "ride.claimed"
	RideEventDeclined  RideEventType = "ride.declined"
	RideEventCompleted RideEventType = "ride.completed"
	RideEventRated     RideEventType = "ride.rated"
)

// RideEvent is emitted after a transition commits, for consumers of the
// internal event stream.
type RideEvent struct {
	Type       RideEventType `json:"type"`
	RideID     string        `json:"ride_id"`
	ConsumerID string        `json:"consumer_id"`
	PullerID   string        `json:"puller_id,omitempty"`
	Status     RideStatus    `json:"status"`
	OccurredAt time.Time     `json:"occurred_at"`
}
