package domain

import "time"

type Book struct {
	ISBN      string
	Title     string
	Author    string
	Stock     int
	Price     float64
	UpdatedAt time.Time
}

// SearchField selects which book column a catalog search matches on.
type SearchField string

const (
	SearchByTitle  SearchField = "title"
	SearchByAuthor SearchField = "author"
)
