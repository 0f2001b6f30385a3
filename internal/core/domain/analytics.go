package domain

import (
	"math"
	"time"
)

// PullerStanding is one row of the top-pullers leaderboard.
type PullerStanding struct {
	ID             string   `json:"id"`
	Username       string   `json:"username"`
	Rating         *float64 `json:"rating"`
	CompletedRides int      `json:"completed_rides"`
	Points         int      `json:"points"`
}

// DestinationCount is one bucket of the destination histogram.
type DestinationCount struct {
	Destination string `json:"destination"`
	Count       int64  `json:"count"`
}

// DashboardSummary is the admin rollup, recomputed from the ledger.
type DashboardSummary struct {
	TotalRides         int64            `json:"total_rides"`
	CompletedRides     int64            `json:"completed_rides"`
	PendingRides       int64            `json:"pending_rides"`
	AcceptedRides      int64            `json:"accepted_rides"`
	CompletionRate     float64          `json:"completion_rate"`
	ActivePullers      int64            `json:"active_pullers"`
	ApprovedPullers    int64            `json:"approved_pullers"`
	TotalPointsAwarded int64            `json:"total_points_awarded"`
	TopPullers         []PullerStanding `json:"top_pullers"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

// CompletionRate returns completed/total as a percentage rounded to one
// decimal place. 0/0 is defined as 0.
func CompletionRate(completed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed)*1000/float64(total)) / 10
}
