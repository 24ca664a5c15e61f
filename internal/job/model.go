package job

import "time"

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPendingBids Status = "pending_bids"
	StatusAccepted    Status = "accepted"
	StatusPickedUp    Status = "picked_up"
	StatusDelivered   Status = "delivered_by_runner"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
)

// Payment capture states. Capture itself happens at an external gateway;
// jobs are created with an already-verified payment id.
const (
	PaymentPending    = "pending"
	PaymentSuccessful = "successful"
)

// PartyDetails is a denormalized snapshot of a user's contact details,
// captured once at creation (requester) or assignment (runner). It is a
// read optimization and may diverge from the users table; the users
// table stays authoritative.
type PartyDetails struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Job is a delivery request posted by a requester and fulfilled by a runner.
type Job struct {
	ID          string `json:"id"`
	RequesterID string `json:"requester_id"`
	RunnerID    string `json:"runner_id,omitempty"`

	Title          string     `json:"title"`
	Description    string     `json:"description"`
	PickupLocation string     `json:"pickup_location"`
	DropLocation   string     `json:"drop_location"`
	Fee            int64      `json:"fee"`
	Deadline       *time.Time `json:"deadline,omitempty"`

	PaymentID     string `json:"payment_id"`
	PaymentStatus string `json:"payment_status"`

	Status Status `json:"status"`

	// Applicants holds candidate runner ids while the job is in
	// pending_bids; it is cleared when a runner is chosen.
	Applicants  []string `json:"applicants"`
	RatingGiven bool     `json:"rating_given"`

	RequesterDetails *PartyDetails `json:"requester_details_cache,omitempty"`
	RunnerDetails    *PartyDetails `json:"runner_details_cache,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasApplicant reports whether runnerID is in the current applicant pool.
func (j *Job) HasApplicant(runnerID string) bool {
	for _, id := range j.Applicants {
		if id == runnerID {
			return true
		}
	}
	return false
}
