package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound - the referenced user does not exist.
var ErrNotFound = errors.New("user not found")

// Store reads and mutates user records. Reputation fields are only
// touched here, invoked by the lifecycle engine.
type Store struct {
	pool         *pgxpool.Pool
	banThreshold int
}

func NewStore(pool *pgxpool.Pool, banThreshold int) *Store {
	return &Store{pool: pool, banThreshold: banThreshold}
}

func (s *Store) FindByID(ctx context.Context, id string) (*User, error) {
	var u User
	var collegeID, profileImageURL, upiID *string
	err := s.pool.QueryRow(ctx, `
        SELECT id, name, email, phone, college_id, profile_image_url,
               wallet_balance, gigs_completed_as_runner, gigs_posted_as_requester,
               report_count, is_banned, total_rating_stars, total_rating_count,
               upi_id, created_at, updated_at
        FROM users WHERE id = $1`, id,
	).Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &collegeID, &profileImageURL,
		&u.WalletBalance, &u.GigsCompletedAsRunner, &u.GigsPostedAsRequester,
		&u.ReportCount, &u.IsBanned, &u.TotalRatingStars, &u.TotalRatingCount,
		&upiID, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if collegeID != nil {
		u.CollegeID = *collegeID
	}
	if profileImageURL != nil {
		u.ProfileImageURL = *profileImageURL
	}
	if upiID != nil {
		u.UPIID = *upiID
	}
	return &u, nil
}

// Details returns the name and phone snapshot used for the jobs table's
// denormalized caches.
func (s *Store) Details(ctx context.Context, userID string) (string, string, error) {
	var name, phone string
	err := s.pool.QueryRow(ctx,
		`SELECT name, phone FROM users WHERE id = $1`, userID,
	).Scan(&name, &phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return name, phone, err
}

func (s *Store) IsBanned(ctx context.Context, userID string) (bool, error) {
	var banned bool
	err := s.pool.QueryRow(ctx,
		`SELECT is_banned FROM users WHERE id = $1`, userID,
	).Scan(&banned)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	return banned, err
}

// IncrementGigCounters bumps both sides' completion counters after a
// confirmed delivery.
func (s *Store) IncrementGigCounters(ctx context.Context, runnerID, requesterID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
        UPDATE users SET gigs_completed_as_runner = gigs_completed_as_runner + 1,
            updated_at = NOW() WHERE id = $1`, runnerID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
        UPDATE users SET gigs_posted_as_requester = gigs_posted_as_requester + 1,
            updated_at = NOW() WHERE id = $1`, requesterID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AddRating folds one rating into the runner's aggregate.
func (s *Store) AddRating(ctx context.Context, runnerID string, stars int) error {
	res, err := s.pool.Exec(ctx, `
        UPDATE users
        SET total_rating_stars = total_rating_stars + $2,
            total_rating_count = total_rating_count + 1,
            updated_at = NOW()
        WHERE id = $1`, runnerID, stars)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Report increments the runner's report count and flips the ban flag
// once the count crosses the threshold. The flip is one-way.
func (s *Store) Report(ctx context.Context, runnerID string) (int, bool, error) {
	var count int
	var banned bool
	err := s.pool.QueryRow(ctx, `
        UPDATE users
        SET report_count = report_count + 1,
            is_banned = is_banned OR (report_count + 1 > $2),
            updated_at = NOW()
        WHERE id = $1
        RETURNING report_count, is_banned`, runnerID, s.banThreshold,
	).Scan(&count, &banned)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, ErrNotFound
	}
	return count, banned, err
}

// Profile returns the public view of a user.
func (s *Store) Profile(ctx context.Context, userID string) (*PublicProfile, error) {
	u, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &PublicProfile{
		ID:                    u.ID,
		Name:                  u.Name,
		GigsCompletedAsRunner: u.GigsCompletedAsRunner,
		GigsPostedAsRequester: u.GigsPostedAsRequester,
		AvgRating:             u.AverageRating(),
		RatingCount:           u.TotalRatingCount,
	}, nil
}
