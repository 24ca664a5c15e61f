package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverageRating(t *testing.T) {
	u := &User{}
	assert.Equal(t, 0.0, u.AverageRating(), "unrated users average to zero")

	u.TotalRatingStars = 9
	u.TotalRatingCount = 2
	assert.Equal(t, 4.5, u.AverageRating())

	u.TotalRatingStars = 5
	u.TotalRatingCount = 1
	assert.Equal(t, 5.0, u.AverageRating())
}
