package model

import (
	"fmt"
	"time"
)

// Book is a catalogued title. TotalCopies always equals the number of BookCopy rows.
type Book struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Title         string    `json:"title" gorm:"size:255;not null;index"`
	Author        string    `json:"author" gorm:"size:255;not null;index"`
	Genre         string    `json:"genre" gorm:"size:100"`
	PublishedYear int       `json:"published_year"`
	Pages         int       `json:"pages"`
	ImageURL      string    `json:"image_url" gorm:"size:512"`
	Description   string    `json:"description" gorm:"type:text;not null"`
	TotalCopies   int       `json:"total_copies" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// LastCopySequence is the highest sequence ever issued for this book.
	// Retired numbers are never handed out again.
	LastCopySequence int `json:"-" gorm:"not null;default:0"`

	// Relations
	Copies []BookCopy `json:"-" gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
}

// BookCopy is one lendable instance of a Book.
type BookCopy struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	BookID      uint      `json:"book_id" gorm:"not null;uniqueIndex:idx_book_copy_sequence"`
	Sequence    int       `json:"sequence" gorm:"not null;uniqueIndex:idx_book_copy_sequence"`
	CopyNumber  string    `json:"copy_number" gorm:"size:64;not null;uniqueIndex"`
	IsAvailable bool      `json:"is_available" gorm:"not null;default:true;index"`
	CreatedAt   time.Time `json:"created_at"`
}

// CopyNumber renders the human-readable identifier of a copy, e.g. BOOK12-COPY003.
func CopyNumber(bookID uint, sequence int) string {
	return fmt.Sprintf("BOOK%d-COPY%03d", bookID, sequence)
}

// BookOverview is a Book annotated with how many of its copies are on the shelf.
type BookOverview struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Genre           string `json:"genre"`
	ImageURL        string `json:"image_url"`
	Description     string `json:"description"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

// BookSummary counts copies straight from the copy table.
type BookSummary struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

// CopyListing is a BookCopy joined with its book title.
type CopyListing struct {
	ID          uint      `json:"id"`
	BookID      uint      `json:"book_id"`
	Title       string    `json:"title"`
	CopyNumber  string    `json:"copy_number"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}
