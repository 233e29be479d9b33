package api

import (
	"github.com/listenupapp/goodbooks-api/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Book        *service.BookService
	Tag         *service.TagService
	Rating      *service.RatingService
	ReadingList *service.ReadingListService
	Search      *service.SearchService // nil when the store carries its own text index
}
