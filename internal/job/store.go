package job

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists jobs. Every state-changing method re-validates its
// precondition inside the write itself (a conditional update), so two
// concurrent conflicting operations on the same job can never both
// succeed; the loser gets ErrInvalidTransition.
type Store interface {
	Insert(ctx context.Context, j *Job) error
	FindByID(ctx context.Context, id string) (*Job, error)
	ListAvailable(ctx context.Context, excludeRequester string) ([]Job, error)
	ListByRequester(ctx context.Context, userID string) ([]Job, error)
	ListByRunner(ctx context.Context, userID string) ([]Job, error)
	ListHistory(ctx context.Context, userID string) ([]Job, error)

	AddApplicant(ctx context.Context, jobID, runnerID string) (*Job, error)
	RemoveApplicant(ctx context.Context, jobID, runnerID string) (*Job, error)
	AssignRunner(ctx context.Context, jobID, runnerID string, details PartyDetails) (*Job, error)
	Transition(ctx context.Context, jobID string, from, to Status, runnerID string) (*Job, error)
	CancelByRunner(ctx context.Context, jobID, runnerID string) (*Job, error)
	Complete(ctx context.Context, jobID string) (*Job, error)
	MarkRated(ctx context.Context, jobID string) error
}

const jobColumns = `id, requester_id, runner_id, title, description,
    pickup_location, drop_location, fee, deadline, payment_id, payment_status,
    status, applicants, rating_given, requester_name, requester_phone,
    runner_name, runner_phone, created_at, updated_at`

// PGStore is the Postgres-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		j           Job
		runnerID    *string
		runnerName  *string
		runnerPhone *string
		deadline    *time.Time
		status      string
	)
	j.RequesterDetails = &PartyDetails{}
	err := row.Scan(
		&j.ID, &j.RequesterID, &runnerID, &j.Title, &j.Description,
		&j.PickupLocation, &j.DropLocation, &j.Fee, &deadline, &j.PaymentID,
		&j.PaymentStatus, &status, &j.Applicants, &j.RatingGiven,
		&j.RequesterDetails.Name, &j.RequesterDetails.Phone,
		&runnerName, &runnerPhone, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.Status = Status(status)
	j.Deadline = deadline
	if runnerID != nil {
		j.RunnerID = *runnerID
	}
	if runnerName != nil && runnerPhone != nil {
		j.RunnerDetails = &PartyDetails{Name: *runnerName, Phone: *runnerPhone}
	}
	if j.Applicants == nil {
		j.Applicants = []string{}
	}
	return &j, nil
}

func (s *PGStore) Insert(ctx context.Context, j *Job) error {
	var runnerID *string
	if j.RunnerID != "" {
		runnerID = &j.RunnerID
	}
	_, err := s.pool.Exec(ctx, `
        INSERT INTO jobs (
            id, requester_id, runner_id, title, description,
            pickup_location, drop_location, fee, deadline, payment_id,
            payment_status, status, applicants, rating_given,
            requester_name, requester_phone, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		j.ID, j.RequesterID, runnerID, j.Title, j.Description,
		j.PickupLocation, j.DropLocation, j.Fee, j.Deadline, j.PaymentID,
		j.PaymentStatus, string(j.Status), j.Applicants, j.RatingGiven,
		j.RequesterDetails.Name, j.RequesterDetails.Phone, j.CreatedAt, j.UpdatedAt,
	)
	return err
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

func (s *PGStore) list(ctx context.Context, query string, args ...any) ([]Job, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (s *PGStore) ListAvailable(ctx context.Context, excludeRequester string) ([]Job, error) {
	return s.list(ctx, `SELECT `+jobColumns+` FROM jobs
        WHERE status = 'pending_bids' AND payment_status = 'successful'
          AND requester_id <> $1
        ORDER BY created_at DESC`, excludeRequester)
}

func (s *PGStore) ListByRequester(ctx context.Context, userID string) ([]Job, error) {
	return s.list(ctx, `SELECT `+jobColumns+` FROM jobs
        WHERE requester_id = $1 ORDER BY created_at DESC`, userID)
}

func (s *PGStore) ListByRunner(ctx context.Context, userID string) ([]Job, error) {
	return s.list(ctx, `SELECT `+jobColumns+` FROM jobs
        WHERE runner_id = $1 ORDER BY created_at DESC`, userID)
}

func (s *PGStore) ListHistory(ctx context.Context, userID string) ([]Job, error) {
	return s.list(ctx, `SELECT `+jobColumns+` FROM jobs
        WHERE status IN ('completed', 'cancelled')
          AND (requester_id = $1 OR runner_id = $1)
        ORDER BY created_at DESC`, userID)
}

func (s *PGStore) AddApplicant(ctx context.Context, jobID, runnerID string) (*Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx, `
        UPDATE jobs
        SET applicants = array_append(applicants, $2), updated_at = NOW()
        WHERE id = $1 AND status = 'pending_bids' AND NOT ($2 = ANY(applicants))
        RETURNING `+jobColumns, jobID, runnerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.classifyApply(ctx, jobID, runnerID)
	}
	return j, err
}

// classifyApply distinguishes why the conditional apply matched no rows.
func (s *PGStore) classifyApply(ctx context.Context, jobID, runnerID string) error {
	cur, err := s.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if cur.Status == StatusPendingBids && cur.HasApplicant(runnerID) {
		return ErrDuplicateApplication
	}
	return ErrInvalidTransition
}

func (s *PGStore) RemoveApplicant(ctx context.Context, jobID, runnerID string) (*Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx, `
        UPDATE jobs
        SET applicants = array_remove(applicants, $2), updated_at = NOW()
        WHERE id = $1 AND status = 'pending_bids'
        RETURNING `+jobColumns, jobID, runnerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.classifyMiss(ctx, jobID)
	}
	return j, err
}

// AssignRunner re-checks applicant membership inside the write so that a
// withdrawal racing the selection makes the selection fail rather than
// assign a withdrawn runner.
func (s *PGStore) AssignRunner(ctx context.Context, jobID, runnerID string, details PartyDetails) (*Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx, `
        UPDATE jobs
        SET status = 'accepted', runner_id = $2::uuid, runner_name = $3,
            runner_phone = $4, applicants = '{}', updated_at = NOW()
        WHERE id = $1 AND status = 'pending_bids' AND $2 = ANY(applicants)
        RETURNING `+jobColumns, jobID, runnerID, details.Name, details.Phone))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.classifyMiss(ctx, jobID)
	}
	return j, err
}

func (s *PGStore) Transition(ctx context.Context, jobID string, from, to Status, runnerID string) (*Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx, `
        UPDATE jobs
        SET status = $4, updated_at = NOW()
        WHERE id = $1 AND status = $3 AND runner_id = $2::uuid
        RETURNING `+jobColumns, jobID, runnerID, string(from), string(to)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.classifyMiss(ctx, jobID)
	}
	return j, err
}

func (s *PGStore) CancelByRunner(ctx context.Context, jobID, runnerID string) (*Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx, `
        UPDATE jobs
        SET status = 'cancelled', updated_at = NOW()
        WHERE id = $1 AND runner_id = $2::uuid AND status IN ('accepted', 'picked_up')
        RETURNING `+jobColumns, jobID, runnerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.classifyMiss(ctx, jobID)
	}
	return j, err
}

func (s *PGStore) Complete(ctx context.Context, jobID string) (*Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx, `
        UPDATE jobs
        SET status = 'completed', updated_at = NOW()
        WHERE id = $1 AND status = 'delivered_by_runner'
        RETURNING `+jobColumns, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.classifyMiss(ctx, jobID)
	}
	return j, err
}

func (s *PGStore) MarkRated(ctx context.Context, jobID string) error {
	res, err := s.pool.Exec(ctx, `
        UPDATE jobs SET rating_given = TRUE, updated_at = NOW()
        WHERE id = $1 AND rating_given = FALSE`, jobID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrAlreadyRated
	}
	return nil
}

func (s *PGStore) classifyMiss(ctx context.Context, jobID string) error {
	if _, err := s.FindByID(ctx, jobID); err != nil {
		return err
	}
	return ErrInvalidTransition
}
