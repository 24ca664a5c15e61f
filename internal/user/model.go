package user

import "time"

// User is an account. Users are dual-role: the same account can request
// jobs and run them.
type User struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	CollegeID       string `json:"college_id,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`

	WalletBalance int64 `json:"wallet_balance"`

	GigsCompletedAsRunner int  `json:"gigs_completed_as_runner"`
	GigsPostedAsRequester int  `json:"gigs_posted_as_requester"`
	ReportCount           int  `json:"report_count"`
	IsBanned              bool `json:"is_banned"`

	TotalRatingStars int64 `json:"total_rating_stars"`
	TotalRatingCount int64 `json:"total_rating_count"`

	UPIID string `json:"upi_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AverageRating is stars/count, 0 when unrated.
func (u *User) AverageRating() float64 {
	if u.TotalRatingCount == 0 {
		return 0
	}
	return float64(u.TotalRatingStars) / float64(u.TotalRatingCount)
}

// PublicProfile is the subset of a user shown to other users.
type PublicProfile struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	GigsCompletedAsRunner int     `json:"gigs_completed_as_runner"`
	GigsPostedAsRequester int     `json:"gigs_posted_as_requester"`
	AvgRating             float64 `json:"avg_rating"`
	RatingCount           int64   `json:"rating_count"`
}
