package domain

// ToRead marks a book as wanted by a user. (UserID, BookID) is unique.
type ToRead struct {
	UserID int64 `json:"user_id" validate:"gt=0"`
	BookID int64 `json:"book_id" validate:"gt=0"`
}
