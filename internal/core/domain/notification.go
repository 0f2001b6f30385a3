package domain

import (
	"fmt"
	"time"
)

// NotificationType tags what produced a notification.
type NotificationType string

const (
	NotificationRideAccepted    NotificationType = "ride_accepted"
	NotificationRideCompleted   NotificationType = "ride_completed"
	NotificationRatingReceived  NotificationType = "rating_received"
	NotificationAccountApproved NotificationType = "account_approved"
	NotificationAccountRejected NotificationType = "account_rejected"
)

// Notification is an append-only inbox entry for one account.
type Notification struct {
	ID        string           `json:"id"`
	AccountID string           `json:"account_id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

func RideAcceptedMessage(destination string) string {
	return fmt.Sprintf("Your ride to %s has been accepted!", destination)
}

func RideCompletedMessage(destination string) string {
	return fmt.Sprintf("Your ride to %s has been completed. Please rate your experience!", destination)
}

func RatingReceivedMessage(stars int) string {
	return fmt.Sprintf("You received a %d-star rating!", stars)
}

const (
	AccountApprovedMessage = "Your puller account has been approved. You can now accept rides."
	AccountRejectedMessage = "Your puller account application was rejected."
)
