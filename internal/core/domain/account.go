package domain

import "time"

// Role identifies what an account may do in the marketplace.
type Role string

const (
	RoleAdmin    Role = "admin"
	RolePuller   Role = "puller"
	RoleConsumer Role = "consumer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePuller, RoleConsumer:
		return true
	}
	return false
}

// ApprovalStatus is the vetting state of an account. Only pullers ever sit
// in pending; admins and consumers are created approved.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// MinPasswordLength is the credential policy applied at signup.
const MinPasswordLength = 8

// InitialApproval returns the approval status a new account of role r starts in.
func InitialApproval(r Role) ApprovalStatus {
	if r == RolePuller {
		return ApprovalPending
	}
	return ApprovalApproved
}

// Account is a marketplace identity.
type Account struct {
	ID             string         `json:"id"`
	Username       string         `json:"username"`
	PasswordHash   string         `json:"-"`
	Role           Role           `json:"role"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	// Rating is the mean over rated completed rides; nil until the first rating.
	Rating         *float64       `json:"rating"`
	RatedRides     int            `json:"rated_rides"`
	Points         int            `json:"points"`
	CompletedRides int            `json:"completed_rides"`
	CreatedAt      time.Time      `json:"created_at"`
	DecidedAt      *time.Time     `json:"decided_at,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Approved reports whether the account may take part in the marketplace.
func (a *Account) Approved() bool {
	return a.ApprovalStatus == ApprovalApproved
}
