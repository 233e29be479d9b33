package domain

// Star bounds for a rating.
const (
	MinStars = 1
	MaxStars = 5
)

// Rating is one user's star rating for one book. (UserID, BookID) is unique.
type Rating struct {
	UserID int64 `json:"user_id" validate:"gt=0"`
	BookID int64 `json:"book_id" validate:"gt=0"`
	Rating int64 `json:"rating" validate:"gte=1,lte=5"`
}

// RatingSummary aggregates every rating of a single book.
type RatingSummary struct {
	BookID       int64           `json:"book_id"`
	Count        int64           `json:"count"`
	Average      float64         `json:"average"`
	Distribution map[int64]int64 `json:"distribution"`
}

// SummarizeRatings folds a star histogram (star value -> number of ratings) into a summary.
// Every star from MinStars to MaxStars is present in the distribution. Values outside that
// range are ignored. The average of a book without ratings is 0.
func SummarizeRatings(bookID int64, histogram map[int64]int64) RatingSummary {
	summary := RatingSummary{
		BookID:       bookID,
		Distribution: make(map[int64]int64, MaxStars),
	}

	var sum int64
	for star := int64(MinStars); star <= MaxStars; star++ {
		n := histogram[star]
		if n < 0 {
			n = 0
		}
		summary.Distribution[star] = n
		summary.Count += n
		sum += star * n
	}

	if summary.Count > 0 {
		summary.Average = float64(sum) / float64(summary.Count)
	}
	return summary
}
