package domain

// Tag is a community shelf name from Goodreads.
type Tag struct {
	TagID   int64  `json:"tag_id" validate:"gte=0"`
	TagName string `json:"tag_name" validate:"required"`
}

// BookTag links a tag to a book. It references the book by goodreads_book_id,
// not book_id. (GoodreadsBookID, TagID) is unique.
type BookTag struct {
	GoodreadsBookID int64 `json:"goodreads_book_id" validate:"gt=0"`
	TagID           int64 `json:"tag_id" validate:"gte=0"`
	Count           int64 `json:"count" validate:"gte=0"`
}

// TagCount is a tag with the number of books that carry it.
type TagCount struct {
	TagID     int64  `json:"tag_id"`
	TagName   string `json:"tag_name"`
	BookCount int64  `json:"book_count"`
}

// BookTagView is a tag as seen from one book: its name and how many users applied it.
type BookTagView struct {
	TagID   int64  `json:"tag_id"`
	TagName string `json:"tag_name"`
	Count   int64  `json:"count"`
}
