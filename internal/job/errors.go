package job

import "errors"

// Every engine operation fails with one of these kinds so handlers can
// surface an accurate message instead of a generic failure.
var (
	// ErrNotFound - the referenced job does not exist.
	ErrNotFound = errors.New("job not found")

	// ErrUnauthorized - the caller is not a party entitled to perform
	// the operation.
	ErrUnauthorized = errors.New("not authorized for this job")

	// ErrInvalidTransition - the job's current status (or applicant
	// membership) does not satisfy the operation's precondition. Also
	// returned to the loser of a concurrent write on the same job.
	ErrInvalidTransition = errors.New("job is not in a valid state for this operation")

	// ErrDuplicateApplication - the runner is already an applicant.
	ErrDuplicateApplication = errors.New("already applied to this job")

	// ErrAlreadyRated - the requester has already rated this job.
	ErrAlreadyRated = errors.New("job has already been rated")

	// ErrBelowMinimum - the fee is under the configured floor.
	ErrBelowMinimum = errors.New("fee is below the minimum")

	// ErrAccountBanned - a banned user attempted to apply or accept.
	ErrAccountBanned = errors.New("account is banned from taking jobs")

	// ErrInvalidRating - stars outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)
