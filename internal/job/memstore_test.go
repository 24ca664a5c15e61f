package job

import (
	"context"
	"sync"

	"github.com/gatedrop/gatedrop/internal/user"
)

// memStore is an in-memory Store with the same conditional-write
// semantics as the Postgres store: every mutation re-checks its guard
// under the lock, so concurrent conflicting calls cannot both succeed.
type memStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]*Job)}
}

func copyJob(j *Job) *Job {
	c := *j
	c.Applicants = append([]string{}, j.Applicants...)
	if j.RequesterDetails != nil {
		d := *j.RequesterDetails
		c.RequesterDetails = &d
	}
	if j.RunnerDetails != nil {
		d := *j.RunnerDetails
		c.RunnerDetails = &d
	}
	return &c
}

func (s *memStore) Insert(_ context.Context, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = copyJob(j)
	return nil
}

func (s *memStore) FindByID(_ context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyJob(j), nil
}

func (s *memStore) filter(pred func(*Job) bool) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Job{}
	for _, j := range s.jobs {
		if pred(j) {
			out = append(out, *copyJob(j))
		}
	}
	return out
}

func (s *memStore) ListAvailable(_ context.Context, excludeRequester string) ([]Job, error) {
	return s.filter(func(j *Job) bool {
		return j.Status == StatusPendingBids && j.PaymentStatus == PaymentSuccessful &&
			j.RequesterID != excludeRequester
	}), nil
}

func (s *memStore) ListByRequester(_ context.Context, userID string) ([]Job, error) {
	return s.filter(func(j *Job) bool { return j.RequesterID == userID }), nil
}

func (s *memStore) ListByRunner(_ context.Context, userID string) ([]Job, error) {
	return s.filter(func(j *Job) bool { return j.RunnerID == userID }), nil
}

func (s *memStore) ListHistory(_ context.Context, userID string) ([]Job, error) {
	return s.filter(func(j *Job) bool {
		return (j.Status == StatusCompleted || j.Status == StatusCancelled) &&
			(j.RequesterID == userID || j.RunnerID == userID)
	}), nil
}

func (s *memStore) AddApplicant(_ context.Context, jobID, runnerID string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	if j.Status != StatusPendingBids {
		return nil, ErrInvalidTransition
	}
	if j.HasApplicant(runnerID) {
		return nil, ErrDuplicateApplication
	}
	j.Applicants = append(j.Applicants, runnerID)
	return copyJob(j), nil
}

func (s *memStore) RemoveApplicant(_ context.Context, jobID, runnerID string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	if j.Status != StatusPendingBids {
		return nil, ErrInvalidTransition
	}
	kept := j.Applicants[:0]
	for _, id := range j.Applicants {
		if id != runnerID {
			kept = append(kept, id)
		}
	}
	j.Applicants = kept
	return copyJob(j), nil
}

func (s *memStore) AssignRunner(_ context.Context, jobID, runnerID string, details PartyDetails) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	if j.Status != StatusPendingBids || !j.HasApplicant(runnerID) {
		return nil, ErrInvalidTransition
	}
	j.Status = StatusAccepted
	j.RunnerID = runnerID
	j.RunnerDetails = &details
	j.Applicants = []string{}
	return copyJob(j), nil
}

func (s *memStore) Transition(_ context.Context, jobID string, from, to Status, runnerID string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	if j.Status != from || j.RunnerID != runnerID {
		return nil, ErrInvalidTransition
	}
	j.Status = to
	return copyJob(j), nil
}

func (s *memStore) CancelByRunner(_ context.Context, jobID, runnerID string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	if j.RunnerID != runnerID || (j.Status != StatusAccepted && j.Status != StatusPickedUp) {
		return nil, ErrInvalidTransition
	}
	j.Status = StatusCancelled
	return copyJob(j), nil
}

func (s *memStore) Complete(_ context.Context, jobID string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	if j.Status != StatusDelivered {
		return nil, ErrInvalidTransition
	}
	j.Status = StatusCompleted
	return copyJob(j), nil
}

func (s *memStore) MarkRated(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if j.RatingGiven {
		return ErrAlreadyRated
	}
	j.RatingGiven = true
	return nil
}

// fakeUser mirrors the reputation fields of a user record.
type fakeUser struct {
	name, phone   string
	banned        bool
	reports       int
	ratingStars   int64
	ratingCount   int64
	gigsRunner    int
	gigsRequester int
}

// fakeUsers implements UserDirectory with the same ban threshold rule
// as the real store.
type fakeUsers struct {
	mu           sync.Mutex
	users        map[string]*fakeUser
	banThreshold int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*fakeUser), banThreshold: 2}
}

func (f *fakeUsers) add(id, name, phone string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = &fakeUser{name: name, phone: phone}
}

func (f *fakeUsers) Details(_ context.Context, userID string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return "", "", user.ErrNotFound
	}
	return u.name, u.phone, nil
}

func (f *fakeUsers) IsBanned(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return false, user.ErrNotFound
	}
	return u.banned, nil
}

func (f *fakeUsers) IncrementGigCounters(_ context.Context, runnerID, requesterID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[runnerID].gigsRunner++
	f.users[requesterID].gigsRequester++
	return nil
}

func (f *fakeUsers) AddRating(_ context.Context, runnerID string, stars int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[runnerID]
	if !ok {
		return user.ErrNotFound
	}
	u.ratingStars += int64(stars)
	u.ratingCount++
	return nil
}

func (f *fakeUsers) Report(_ context.Context, runnerID string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[runnerID]
	if !ok {
		return 0, false, user.ErrNotFound
	}
	u.reports++
	if u.reports > f.banThreshold {
		u.banned = true
	}
	return u.reports, u.banned, nil
}

// fakeLedger records credits and keeps balances non-negative by
// construction (credits only).
type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	credits  []int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[string]int64)}
}

func (l *fakeLedger) Credit(_ context.Context, userID string, amount int64, _ string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] += amount
	l.credits = append(l.credits, amount)
	return l.balances[userID], nil
}

// recorded is one captured broadcast.
type recorded struct {
	Room  string // empty for global
	Event string
	Data  any
}

// recorder implements Broadcaster and captures every emission.
type recorder struct {
	mu     sync.Mutex
	events []recorded
}

func (r *recorder) ToRoom(roomID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{Room: roomID, Event: event, Data: payload})
}

func (r *recorder) Global(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{Event: event, Data: payload})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Event
	}
	return out
}
