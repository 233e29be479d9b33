package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/goodbooks-api/internal/domain"
)

// Write statuses reported by POST /ratings.
const (
	ratingCreated = "created"
	ratingUpdated = "updated"
)

func (s *Server) registerRatingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getRatingSummary",
		Method:      http.MethodGet,
		Path:        "/books/{id}/ratings/summary",
		Summary:     "Get rating summary",
		Description: "Returns count, average and star distribution of a book's ratings",
		Tags:        []string{"Ratings", "Books"},
	}, s.handleGetRatingSummary)

	huma.Register(s.api, huma.Operation{
		OperationID:   "upsertRating",
		Method:        http.MethodPost,
		Path:          "/ratings",
		Summary:       "Rate a book",
		Description:   "Creates or replaces the rating of a user for a book. 201 when created, 200 when updated.",
		Tags:          []string{"Ratings"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"apiKey": {}}},
		Middlewares:   huma.Middlewares{s.requireAPIKey},
	}, s.handleUpsertRating)
}

// === DTOs ===

// GetRatingSummaryInput contains parameters for a rating summary.
type GetRatingSummaryInput struct {
	ID int64 `path:"id" doc:"book_id"`
}

// RatingSummaryOutput wraps the summary for Huma.
type RatingSummaryOutput struct {
	Body domain.RatingSummary
}

// UpsertRatingRequest is the request body for rating a book. Ranges are checked by the
// rating service so the error details match the store's validation.
type UpsertRatingRequest struct {
	UserID int64 `json:"user_id" doc:"Rating user"`
	BookID int64 `json:"book_id" doc:"Rated book_id"`
	Rating int64 `json:"rating" doc:"Stars, 1 to 5"`
}

// UpsertRatingInput wraps the upsert request for Huma.
type UpsertRatingInput struct {
	Body UpsertRatingRequest
}

// WriteResponse acknowledges a write.
type WriteResponse struct {
	Acknowledged bool   `json:"acknowledged" doc:"Always true on success"`
	Status       string `json:"status" enum:"created,updated" doc:"Whether the rating was created or replaced"`
}

// UpsertRatingOutput wraps the write acknowledgement for Huma.
type UpsertRatingOutput struct {
	Status int
	Body   WriteResponse
}

func (s *Server) handleGetRatingSummary(ctx context.Context, input *GetRatingSummaryInput) (*RatingSummaryOutput, error) {
	summary, err := s.services.Rating.Summary(ctx, input.ID)
	if err != nil {
		return nil, s.fail(err)
	}
	return &RatingSummaryOutput{Body: *summary}, nil
}

func (s *Server) handleUpsertRating(ctx context.Context, input *UpsertRatingInput) (*UpsertRatingOutput, error) {
	created, err := s.services.Rating.Upsert(ctx, domain.Rating{
		UserID: input.Body.UserID,
		BookID: input.Body.BookID,
		Rating: input.Body.Rating,
	})
	if err != nil {
		return nil, s.fail(err)
	}
	s.metrics.RatingWritten(created)

	out := &UpsertRatingOutput{
		Status: http.StatusOK,
		Body:   WriteResponse{Acknowledged: true, Status: ratingUpdated},
	}
	if created {
		out.Status = http.StatusCreated
		out.Body.Status = ratingCreated
	}
	return out, nil
}
