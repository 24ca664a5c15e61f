package job

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatedrop/gatedrop/internal/config"
	"github.com/gatedrop/gatedrop/internal/realtime"
)

type fixture struct {
	engine *Engine
	store  *memStore
	users  *fakeUsers
	ledger *fakeLedger
	rt     *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  newMemStore(),
		users:  newFakeUsers(),
		ledger: newFakeLedger(),
		rt:     &recorder{},
	}
	f.engine = NewEngine(f.store, f.users, f.ledger, f.rt, config.DefaultPolicy())
	f.users.add("req-1", "Asha", "9000000001")
	f.users.add("run-1", "Vikram", "9000000002")
	f.users.add("run-2", "Neha", "9000000003")
	return f
}

func (f *fixture) post(t *testing.T, fee int64) *Job {
	t.Helper()
	j, err := f.engine.Create(context.Background(), "req-1", CreateRequest{
		Title:          "Canteen pickup",
		Description:    "Two samosas from the north canteen",
		PickupLocation: "North Canteen",
		DropLocation:   "Hostel B-214",
		Fee:            fee,
		PaymentID:      "pay_test_1",
	})
	require.NoError(t, err)
	return j
}

// assertInvariants checks the structural invariants every job must
// satisfy in every state.
func assertInvariants(t *testing.T, j *Job) {
	t.Helper()
	assigned := j.Status == StatusAccepted || j.Status == StatusPickedUp ||
		j.Status == StatusDelivered || j.Status == StatusCompleted
	if assigned {
		assert.NotEmpty(t, j.RunnerID, "assigned statuses require a runner")
	}
	if j.Status == StatusPendingBids {
		assert.Empty(t, j.RunnerID, "pending_bids must have no runner")
	}
	if j.Status != StatusPendingBids {
		assert.Empty(t, j.Applicants, "applicants only exist while bidding")
	}
}

func TestCreate_BelowMinimumFee(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Create(context.Background(), "req-1", CreateRequest{
		Title: "x", Description: "x", PickupLocation: "x", DropLocation: "x",
		Fee: 29, PaymentID: "pay_x",
	})
	assert.ErrorIs(t, err, ErrBelowMinimum)
}

func TestCreate_EmitsGlobalEvent(t *testing.T) {
	f := newFixture(t)
	j := f.post(t, 50)

	assert.Equal(t, StatusPendingBids, j.Status)
	assert.Equal(t, PaymentSuccessful, j.PaymentStatus)
	assert.Equal(t, "Asha", j.RequesterDetails.Name)
	assertInvariants(t, j)

	require.Len(t, f.rt.events, 1)
	assert.Equal(t, realtime.EventJobCreated, f.rt.events[0].Event)
	assert.Empty(t, f.rt.events[0].Room, "job_created is a global event")
}

func TestApply_Guards(t *testing.T) {
	f := newFixture(t)
	j := f.post(t, 50)
	ctx := context.Background()

	// requester cannot bid on their own job
	_, err := f.engine.Apply(ctx, j.ID, "req-1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// first application succeeds
	updated, err := f.engine.Apply(ctx, j.ID, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, updated.Applicants)

	// second application by the same runner is rejected
	_, err = f.engine.Apply(ctx, j.ID, "run-1")
	assert.ErrorIs(t, err, ErrDuplicateApplication)

	// banned runners cannot apply
	f.users.users["run-2"].banned = true
	_, err = f.engine.Apply(ctx, j.ID, "run-2")
	assert.ErrorIs(t, err, ErrAccountBanned)

	_, err = f.engine.Apply(ctx, "missing", "run-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelBid(t *testing.T) {
	f := newFixture(t)
	j := f.post(t, 50)
	ctx := context.Background()

	_, err := f.engine.Apply(ctx, j.ID, "run-1")
	require.NoError(t, err)

	updated, err := f.engine.CancelBid(ctx, j.ID, "run-1")
	require.NoError(t, err)
	assert.Empty(t, updated.Applicants)

	// withdrawing when not an applicant is a no-op
	_, err = f.engine.CancelBid(ctx, j.ID, "run-2")
	assert.NoError(t, err)
}

func TestChooseRunner(t *testing.T) {
	f := newFixture(t)
	j := f.post(t, 50)
	ctx := context.Background()

	_, err := f.engine.Apply(ctx, j.ID, "run-1")
	require.NoError(t, err)

	// only the requester may choose
	_, err = f.engine.ChooseRunner(ctx, j.ID, "run-2", "run-1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// choosing someone who never applied fails
	_, err = f.engine.ChooseRunner(ctx, j.ID, "req-1", "run-2")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := f.engine.ChooseRunner(ctx, j.ID, "req-1", "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, updated.Status)
	assert.Equal(t, "run-1", updated.RunnerID)
	assert.Empty(t, updated.Applicants)
	assert.Equal(t, "Vikram", updated.RunnerDetails.Name)
	assertInvariants(t, updated)

	// job is no longer biddable
	_, err = f.engine.Apply(ctx, j.ID, "run-2")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	names := f.rt.names()
	assert.Contains(t, names, realtime.EventJobUpdated)
	assert.Contains(t, names, realtime.EventJobTaken)
}

func TestChooseRunner_WithdrawnApplicant(t *testing.T) {
	f := newFixture(t)
	j := f.post(t, 50)
	ctx := context.Background()

	_, err := f.engine.Apply(ctx, j.ID, "run-1")
	require.NoError(t, err)
	_, err = f.engine.CancelBid(ctx, j.ID, "run-1")
	require.NoError(t, err)

	_, err = f.engine.ChooseRunner(ctx, j.ID, "req-1", "run-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestChooseRunner_ConcurrentSelection(t *testing.T) {
	f := newFixture(t)
	j := f.post(t, 50)
	ctx := context.Background()

	_, err := f.engine.Apply(ctx, j.ID, "run-1")
	require.NoError(t, err)
	_, err = f.engine.Apply(ctx, j.ID, "run-2")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, runner := range []string{"run-1", "run-2"} {
		wg.Add(1)
		go func(i int, runner string) {
			defer wg.Done()
			_, errs[i] = f.engine.ChooseRunner(ctx, j.ID, "req-1", runner)
		}(i, runner)
	}
	wg.Wait()

	// exactly one selection wins; the loser sees the state error
	if errs[0] == nil {
		assert.ErrorIs(t, errs[1], ErrInvalidTransition)
	} else {
		assert.ErrorIs(t, errs[0], ErrInvalidTransition)
		assert.NoError(t, errs[1])
	}

	final, err := f.store.FindByID(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, final.Status)
	assert.Contains(t, []string{"run-1", "run-2"}, final.RunnerID)
	assert.Empty(t, final.Applicants)
	assertInvariants(t, final)
}

// advance walks a job to the given status through the normal path.
func (f *fixture) advance(t *testing.T, jobID string, target Status) *Job {
	t.Helper()
	ctx := context.Background()
	j, err := f.engine.Apply(ctx, jobID, "run-1")
	require.NoError(t, err)
	j, err = f.engine.ChooseRunner(ctx, jobID, "req-1", "run-1")
	require.NoError(t, err)
	if target == StatusAccepted {
		return j
	}
	j, err = f.engine.MarkPickedUp(ctx, jobID, "run-1")
	require.NoError(t, err)
	if target == StatusPickedUp {
		return j
	}
	j, err = f.engine.MarkDelivered(ctx, jobID, "run-1")
	require.NoError(t, err)
	if target == StatusDelivered {
		return j
	}
	j, err = f.engine.ConfirmDelivery(ctx, jobID, "req-1")
	require.NoError(t, err)
	return j
}

func TestRunnerTransitions_Guards(t *testing.T) {
	f := newFixture(t)
	j := f.post(t, 50)
	ctx := context.Background()

	// cannot pick up a job still in bidding
	_, err := f.engine.MarkPickedUp(ctx, j.ID, "run-1")
	assert.ErrorIs(t, err, ErrUnauthorized) // not the runner yet

	f.advance(t, j.ID, StatusAccepted)

	// only the assigned runner may progress the job
	_, err = f.engine.MarkPickedUp(ctx, j.ID, "run-2")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// delivery requires picked_up first
	_, err = f.engine.MarkDelivered(ctx, j.ID, "run-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	picked, err := f.engine.MarkPickedUp(ctx, j.ID, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPickedUp, picked.Status)

	// picking up twice fails
	_, err = f.engine.MarkPickedUp(ctx, j.ID, "run-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConfirmDelivery_PaysExactlyOnce(t *testing.T) {
	f := newFixture(t)
	j := f.post(t, 50)
	ctx := context.Background()
	f.advance(t, j.ID, StatusDelivered)

	// only the requester may confirm
	_, err := f.engine.ConfirmDelivery(ctx, j.ID, "run-1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	done, err := f.engine.ConfirmDelivery(ctx, j.ID, "req-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assertInvariants(t, done)

	assert.Equal(t, int64(50), f.ledger.balances["run-1"])
	assert.Equal(t, 1, f.users.users["run-1"].gigsRunner)
	assert.Equal(t, 1, f.users.users["req-1"].gigsRequester)

	// a second confirm must not pay again
	_, err = f.engine.ConfirmDelivery(ctx, j.ID, "req-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, f.ledger.credits, 1)
	assert.Equal(t, int64(50), f.ledger.balances["run-1"])

	names := f.rt.names()
	assert.Contains(t, names, realtime.EventBalanceChanged)
}

func TestRate_OncePerJob(t *testing.T) {
	f := newFixture(t)
	j := f.post(t, 50)
	ctx := context.Background()

	// rating before completion is rejected
	f.advance(t, j.ID, StatusDelivered)
	_, err := f.engine.Rate(ctx, j.ID, "req-1", 4)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.engine.ConfirmDelivery(ctx, j.ID, "req-1")
	require.NoError(t, err)

	_, err = f.engine.Rate(ctx, j.ID, "run-1", 4)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.engine.Rate(ctx, j.ID, "req-1", 6)
	assert.ErrorIs(t, err, ErrInvalidRating)

	rated, err := f.engine.Rate(ctx, j.ID, "req-1", 4)
	require.NoError(t, err)
	assert.True(t, rated.RatingGiven)
	assert.Equal(t, int64(4), f.users.users["run-1"].ratingStars)
	assert.Equal(t, int64(1), f.users.users["run-1"].ratingCount)

	// rating twice leaves the aggregate unchanged
	_, err = f.engine.Rate(ctx, j.ID, "req-1", 5)
	assert.ErrorIs(t, err, ErrAlreadyRated)
	assert.Equal(t, int64(4), f.users.users["run-1"].ratingStars)
	assert.Equal(t, int64(1), f.users.users["run-1"].ratingCount)
}

func TestCancelDelivery_Terminal(t *testing.T) {
	f := newFixture(t)
	j := f.post(t, 50)
	ctx := context.Background()
	f.advance(t, j.ID, StatusPickedUp)

	_, err := f.engine.CancelDelivery(ctx, j.ID, "run-2")
	assert.ErrorIs(t, err, ErrUnauthorized)

	cancelled, err := f.engine.CancelDelivery(ctx, j.ID, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// cancelled is terminal
	_, err = f.engine.MarkDelivered(ctx, j.ID, "run-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.engine.CancelDelivery(ctx, j.ID, "run-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReport_BanThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// three reports across three separate jobs
	for i := 0; i < 3; i++ {
		j := f.post(t, 50)
		f.advance(t, j.ID, StatusCompleted)

		res, err := f.engine.Report(ctx, j.ID, "req-1", "late delivery")
		require.NoError(t, err)
		assert.Equal(t, i+1, res.ReportCount)
		// the ban flips exactly on the third report
		assert.Equal(t, i+1 > 2, res.IsBanned)
	}

	// the banned runner can no longer bid
	j := f.post(t, 50)
	_, err := f.engine.Apply(ctx, j.ID, "run-1")
	assert.ErrorIs(t, err, ErrAccountBanned)

	// and cannot be chosen either
	_, err = f.engine.Apply(ctx, j.ID, "run-2")
	require.NoError(t, err)
}

func TestReport_RequiresRunner(t *testing.T) {
	f := newFixture(t)
	j := f.post(t, 50)
	ctx := context.Background()

	_, err := f.engine.Report(ctx, j.ID, "req-1", "no show")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.engine.Report(ctx, j.ID, "run-1", "whatever")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGet_Visibility(t *testing.T) {
	f := newFixture(t)
	j := f.post(t, 50)
	ctx := context.Background()

	// anyone can view a job that is still open for bids
	_, err := f.engine.Get(ctx, j.ID, "run-2")
	assert.NoError(t, err)

	f.advance(t, j.ID, StatusAccepted)

	// after assignment only the parties can view it
	_, err = f.engine.Get(ctx, j.ID, "run-2")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.engine.Get(ctx, j.ID, "req-1")
	assert.NoError(t, err)
	_, err = f.engine.Get(ctx, j.ID, "run-1")
	assert.NoError(t, err)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	open := f.post(t, 50)
	finished := f.post(t, 80)
	f.advance(t, finished.ID, StatusCompleted)

	available, err := f.engine.Available(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, open.ID, available[0].ID)

	// own jobs are excluded from the available feed
	availableOwn, err := f.engine.Available(ctx, "req-1")
	require.NoError(t, err)
	assert.Empty(t, availableOwn)

	posted, err := f.engine.MyPosted(ctx, "req-1")
	require.NoError(t, err)
	assert.Len(t, posted, 2)

	running, err := f.engine.MyRunner(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, finished.ID, running[0].ID)

	history, err := f.engine.History(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, StatusCompleted, history[0].Status)
}
