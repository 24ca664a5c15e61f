package job

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gatedrop/gatedrop/internal/config"
	"github.com/gatedrop/gatedrop/internal/obs"
	"github.com/gatedrop/gatedrop/internal/realtime"
)

// UserDirectory is the slice of the user store the engine needs:
// snapshot details for the denormalized caches, ban checks, and the
// reputation side effects of confirm/rate/report.
type UserDirectory interface {
	Details(ctx context.Context, userID string) (name, phone string, err error)
	IsBanned(ctx context.Context, userID string) (bool, error)
	IncrementGigCounters(ctx context.Context, runnerID, requesterID string) error
	AddRating(ctx context.Context, runnerID string, stars int) error
	Report(ctx context.Context, runnerID string) (reportCount int, banned bool, err error)
}

// Ledger releases the escrowed fee into the runner's wallet on
// confirmation.
type Ledger interface {
	Credit(ctx context.Context, userID string, amount int64, reference string) (newBalance int64, err error)
}

// Broadcaster fans emitted events out to connected clients. Delivery is
// best-effort and never blocks or fails the triggering transition.
type Broadcaster interface {
	ToRoom(roomID, event string, payload any)
	Global(event string, payload any)
}

// Engine validates and applies job lifecycle transitions, invoking the
// ledger and reputation side effects and emitting domain events. All
// writes go through the store's conditional updates, so a guard that
// passed on the loaded snapshot is re-checked at write time.
type Engine struct {
	store  Store
	users  UserDirectory
	ledger Ledger
	rt     Broadcaster
	policy config.Policy
}

func NewEngine(store Store, users UserDirectory, ledger Ledger, rt Broadcaster, policy config.Policy) *Engine {
	return &Engine{store: store, users: users, ledger: ledger, rt: rt, policy: policy}
}

// CreateRequest is the validated body of a job posting.
type CreateRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	PickupLocation string     `json:"pickup_location"`
	DropLocation   string     `json:"drop_location"`
	Fee            int64      `json:"fee"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	PaymentID      string     `json:"payment_id"`
}

// Create posts a new job in pending_bids. Payment capture happens at an
// external gateway before this is called, so the payment is recorded as
// already successful.
func (e *Engine) Create(ctx context.Context, requesterID string, req CreateRequest) (*Job, error) {
	if req.Fee < e.policy.MinFee {
		return nil, ErrBelowMinimum
	}
	name, phone, err := e.users.Details(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	j := &Job{
		ID:               uuid.New().String(),
		RequesterID:      requesterID,
		Title:            req.Title,
		Description:      req.Description,
		PickupLocation:   req.PickupLocation,
		DropLocation:     req.DropLocation,
		Fee:              req.Fee,
		Deadline:         req.Deadline,
		PaymentID:        req.PaymentID,
		PaymentStatus:    PaymentSuccessful,
		Status:           StatusPendingBids,
		Applicants:       []string{},
		RequesterDetails: &PartyDetails{Name: name, Phone: phone},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := e.store.Insert(ctx, j); err != nil {
		return nil, err
	}

	obs.JobTransitions.WithLabelValues("create").Inc()
	e.rt.Global(realtime.EventJobCreated, j)
	return j, nil
}

// Apply adds a runner to the applicant pool of a pending_bids job.
func (e *Engine) Apply(ctx context.Context, jobID, runnerID string) (*Job, error) {
	j, err := e.store.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.RequesterID == runnerID {
		return nil, ErrUnauthorized
	}
	if j.Status != StatusPendingBids {
		return nil, ErrInvalidTransition
	}
	if j.HasApplicant(runnerID) {
		return nil, ErrDuplicateApplication
	}
	banned, err := e.users.IsBanned(ctx, runnerID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, ErrAccountBanned
	}

	updated, err := e.store.AddApplicant(ctx, jobID, runnerID)
	if err != nil {
		return nil, err
	}

	obs.JobTransitions.WithLabelValues("apply").Inc()
	e.rt.ToRoom(jobID, realtime.EventApplicantAdded, map[string]any{
		"job_id":    jobID,
		"applicant": runnerID,
	})
	return updated, nil
}

// CancelBid withdraws a runner from the applicant pool. Withdrawing when
// not an applicant is a no-op, not an error.
func (e *Engine) CancelBid(ctx context.Context, jobID, runnerID string) (*Job, error) {
	j, err := e.store.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.Status != StatusPendingBids {
		return nil, ErrInvalidTransition
	}
	if !j.HasApplicant(runnerID) {
		return j, nil
	}

	updated, err := e.store.RemoveApplicant(ctx, jobID, runnerID)
	if err != nil {
		return nil, err
	}

	e.rt.ToRoom(jobID, realtime.EventApplicantRemoved, map[string]any{
		"job_id":    jobID,
		"runner_id": runnerID,
	})
	return updated, nil
}

// ChooseRunner assigns one applicant as the job's runner. Membership is
// re-validated inside the write, so a bid withdrawn at the same instant
// makes the selection fail instead of assigning a withdrawn runner.
func (e *Engine) ChooseRunner(ctx context.Context, jobID, requesterID, runnerID string) (*Job, error) {
	j, err := e.store.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.RequesterID != requesterID {
		return nil, ErrUnauthorized
	}
	if j.Status != StatusPendingBids || !j.HasApplicant(runnerID) {
		return nil, ErrInvalidTransition
	}
	banned, err := e.users.IsBanned(ctx, runnerID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, ErrAccountBanned
	}
	name, phone, err := e.users.Details(ctx, runnerID)
	if err != nil {
		return nil, err
	}

	updated, err := e.store.AssignRunner(ctx, jobID, runnerID, PartyDetails{Name: name, Phone: phone})
	if err != nil {
		return nil, err
	}

	obs.JobTransitions.WithLabelValues("accept").Inc()
	e.rt.ToRoom(jobID, realtime.EventJobUpdated, updated)
	e.rt.Global(realtime.EventJobTaken, map[string]any{"job_id": jobID})
	return updated, nil
}

// MarkPickedUp moves an accepted job to picked_up. Runner only.
func (e *Engine) MarkPickedUp(ctx context.Context, jobID, runnerID string) (*Job, error) {
	return e.runnerTransition(ctx, jobID, runnerID, StatusAccepted, StatusPickedUp, "pickup")
}

// MarkDelivered moves a picked_up job to delivered_by_runner. Runner only.
func (e *Engine) MarkDelivered(ctx context.Context, jobID, runnerID string) (*Job, error) {
	return e.runnerTransition(ctx, jobID, runnerID, StatusPickedUp, StatusDelivered, "deliver")
}

func (e *Engine) runnerTransition(ctx context.Context, jobID, runnerID string, from, to Status, op string) (*Job, error) {
	j, err := e.store.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.RunnerID != runnerID {
		return nil, ErrUnauthorized
	}
	if j.Status != from {
		return nil, ErrInvalidTransition
	}

	updated, err := e.store.Transition(ctx, jobID, from, to, runnerID)
	if err != nil {
		return nil, err
	}

	obs.JobTransitions.WithLabelValues(op).Inc()
	e.rt.ToRoom(jobID, realtime.EventJobUpdated, updated)
	return updated, nil
}

// ConfirmDelivery completes the job and releases the escrowed fee to
// the runner. The status swap is the commit point: the credit and the
// gig counters run only if this call won the compare-and-swap, so a
// second confirm can never pay twice.
func (e *Engine) ConfirmDelivery(ctx context.Context, jobID, requesterID string) (*Job, error) {
	j, err := e.store.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.RequesterID != requesterID {
		return nil, ErrUnauthorized
	}
	if j.Status != StatusDelivered {
		return nil, ErrInvalidTransition
	}

	updated, err := e.store.Complete(ctx, jobID)
	if err != nil {
		return nil, err
	}

	newBalance, err := e.ledger.Credit(ctx, updated.RunnerID, updated.Fee, jobID)
	if err != nil {
		// Status already swapped; surface the failure rather than
		// unwinding a completed delivery.
		log.Printf("[Job %s] completed but payout failed: %v", jobID, err)
		return nil, err
	}
	if err := e.users.IncrementGigCounters(ctx, updated.RunnerID, requesterID); err != nil {
		log.Printf("[Job %s] failed to bump gig counters: %v", jobID, err)
	}

	obs.JobTransitions.WithLabelValues("complete").Inc()
	e.rt.ToRoom(jobID, realtime.EventJobUpdated, updated)
	e.rt.Global(realtime.EventBalanceChanged, map[string]any{
		"user_id":     updated.RunnerID,
		"new_balance": newBalance,
	})
	log.Printf("[Job %s] confirmed, paid %d to runner %s", jobID, updated.Fee, updated.RunnerID)
	return updated, nil
}

// Rate records the requester's one-time rating of the runner.
func (e *Engine) Rate(ctx context.Context, jobID, requesterID string, stars int) (*Job, error) {
	if stars < 1 || stars > 5 {
		return nil, ErrInvalidRating
	}
	j, err := e.store.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.RequesterID != requesterID {
		return nil, ErrUnauthorized
	}
	if j.Status != StatusCompleted || j.RunnerID == "" {
		return nil, ErrInvalidTransition
	}
	if j.RatingGiven {
		return nil, ErrAlreadyRated
	}

	// The flag swap is conditional, so a double-submit adds stars once.
	if err := e.store.MarkRated(ctx, jobID); err != nil {
		return nil, err
	}
	if err := e.users.AddRating(ctx, j.RunnerID, stars); err != nil {
		return nil, err
	}
	j.RatingGiven = true
	return j, nil
}

// CancelDelivery is the runner walking away from an accepted or
// picked_up job. The job goes terminal.
// TODO: decide the refund/strike policy for runner cancellations.
func (e *Engine) CancelDelivery(ctx context.Context, jobID, runnerID string) (*Job, error) {
	j, err := e.store.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.RunnerID != runnerID {
		return nil, ErrUnauthorized
	}
	if j.Status != StatusAccepted && j.Status != StatusPickedUp {
		return nil, ErrInvalidTransition
	}

	updated, err := e.store.CancelByRunner(ctx, jobID, runnerID)
	if err != nil {
		return nil, err
	}

	obs.JobTransitions.WithLabelValues("cancel").Inc()
	e.rt.ToRoom(jobID, realtime.EventJobUpdated, updated)
	return updated, nil
}

// ReportResult is what Report returns to the caller.
type ReportResult struct {
	ReportCount int  `json:"report_count"`
	IsBanned    bool `json:"is_banned"`
}

// Report files a requester's complaint against the assigned runner and
// applies the ban threshold.
func (e *Engine) Report(ctx context.Context, jobID, requesterID, reason string) (*ReportResult, error) {
	j, err := e.store.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.RequesterID != requesterID {
		return nil, ErrUnauthorized
	}
	if j.RunnerID == "" {
		return nil, ErrInvalidTransition
	}

	count, banned, err := e.users.Report(ctx, j.RunnerID)
	if err != nil {
		return nil, err
	}
	if banned {
		log.Printf("[Report] runner %s has been banned (reports=%d)", j.RunnerID, count)
	}
	log.Printf("[Report] runner %s reported for job %s. Reason: %s", j.RunnerID, jobID, reason)

	e.rt.ToRoom(jobID, realtime.EventRunnerReported, map[string]any{
		"report_count": count,
		"is_banned":    banned,
	})
	return &ReportResult{ReportCount: count, IsBanned: banned}, nil
}

// Get returns a job to a caller allowed to see it: parties always,
// everyone else only while it is still open for bids.
func (e *Engine) Get(ctx context.Context, jobID, callerID string) (*Job, error) {
	j, err := e.store.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.RequesterID != callerID && j.RunnerID != callerID && j.Status != StatusPendingBids {
		return nil, ErrUnauthorized
	}
	return j, nil
}

// Available lists open jobs a runner could bid on.
func (e *Engine) Available(ctx context.Context, callerID string) ([]Job, error) {
	return e.store.ListAvailable(ctx, callerID)
}

// MyPosted lists the caller's jobs as requester.
func (e *Engine) MyPosted(ctx context.Context, callerID string) ([]Job, error) {
	return e.store.ListByRequester(ctx, callerID)
}

// MyRunner lists the caller's jobs as runner.
func (e *Engine) MyRunner(ctx context.Context, callerID string) ([]Job, error) {
	return e.store.ListByRunner(ctx, callerID)
}

// History lists the caller's finished jobs on either side.
func (e *Engine) History(ctx context.Context, callerID string) ([]Job, error) {
	return e.store.ListHistory(ctx, callerID)
}
