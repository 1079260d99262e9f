// Package models contains the domain structures shared by storage, services
// and HTTP handlers, along with the request payloads used to create them.
package models

import "time"

// Genres is the fixed list of genres a book may be tagged with.
var Genres = []string{
	"Fiction",
	"Non-Fiction",
	"Fantasy",
	"Science Fiction",
	"Mystery",
	"Thriller",
	"Romance",
	"Horror",
	"Historical Fiction",
	"Biography",
	"History",
	"Science",
	"Self-Help",
	"Poetry",
	"Young Adult",
	"Children",
	"Graphic Novel",
	"Philosophy",
	"Business",
	"Other",
}

// IsGenre reports whether g is one of Genres.
func IsGenre(g string) bool {
	for _, genre := range Genres {
		if genre == g {
			return true
		}
	}
	return false
}

// Book is one entry of a user's collection.
// Optional attributes are pointers so that "absent" differs from zero.
type Book struct {
	ID         int64      `json:"id"`
	UserUID    string     `json:"-"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	Genre      string     `json:"genre,omitempty"`
	CoverImage string     `json:"coverImage,omitempty"`
	Rating     *float64   `json:"rating,omitempty"`
	PageCount  *int       `json:"page_count,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsDeleted reports whether the book is soft-deleted.
func (b Book) IsDeleted() bool {
	return b.DeletedAt != nil
}

// Pages returns the page count or 0 when it is unknown.
func (b Book) Pages() int {
	if b.PageCount == nil {
		return 0
	}
	return *b.PageCount
}

// BookInput is the payload accepted by the add and update endpoints.
type BookInput struct {
	Title      string     `json:"title" validate:"required,max=500"`
	Author     string     `json:"author" validate:"required,max=500"`
	Genre      string     `json:"genre,omitempty" validate:"omitempty,genre"`
	CoverImage string     `json:"coverImage,omitempty" validate:"omitempty,url"`
	Rating     *float64   `json:"rating,omitempty" validate:"omitempty,min=0,max=5,halfstep"`
	PageCount  *int       `json:"page_count,omitempty" validate:"omitempty,min=0"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty" validate:"omitempty,finishedafterstart"`
}

// ToBook builds a Book owned by userUID from the input.
func (in BookInput) ToBook(userUID string) Book {
	return Book{
		UserUID:    userUID,
		Title:      in.Title,
		Author:     in.Author,
		Genre:      in.Genre,
		CoverImage: in.CoverImage,
		Rating:     in.Rating,
		PageCount:  in.PageCount,
		StartedAt:  in.StartedAt,
		FinishedAt: in.FinishedAt,
	}
}

// BookFinishedEvent is published when a book gets a finished_at date.
type BookFinishedEvent struct {
	EventID    string    `json:"event_id"`
	UserUID    string    `json:"user_uid"`
	BookID     int64     `json:"book_id"`
	FinishedAt time.Time `json:"finished_at"`
}
