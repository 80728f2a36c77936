package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BorrowStatus represents the state of a borrow record. Returned is terminal.
type BorrowStatus string

const (
	BorrowStatusBorrowed BorrowStatus = "borrowed"
	BorrowStatusReturned BorrowStatus = "returned"
)

// Borrow links a User to a BookCopy for a bounded period.
// Dates are calendar days stored as midnight UTC. BookID and CopyNumber are
// captured at issue time so history survives a retired copy.
type Borrow struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	UserID     uint         `json:"user_id" gorm:"not null;index"`
	CopyID     uint         `json:"copy_id" gorm:"not null;index"`
	BookID     uint         `json:"book_id" gorm:"index"`
	CopyNumber string       `json:"copy_number" gorm:"size:64"`
	BorrowDate time.Time    `json:"borrow_date" gorm:"type:date;not null"`
	DueDate    time.Time    `json:"due_date" gorm:"type:date;not null;index"`
	ReturnDate *time.Time   `json:"return_date" gorm:"type:date"`
	Status     BorrowStatus `json:"status" gorm:"type:varchar(20);not null;default:'borrowed';index"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// IsOpen reports whether the copy is still out on this record.
func (b *Borrow) IsOpen() bool {
	return b.Status == BorrowStatusBorrowed
}

// BorrowDetail is a Borrow joined with the user, copy and book it refers to.
type BorrowDetail struct {
	ID          uint            `json:"id"`
	UserID      uint            `json:"user_id"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Email       string          `json:"email"`
	CopyID      uint            `json:"copy_id"`
	CopyNumber  string          `json:"copy_number"`
	BookID      uint            `json:"book_id"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	ImageURL    string          `json:"image_url"`
	Status      BorrowStatus    `json:"status"`
	BorrowDate  time.Time       `json:"borrow_date"`
	DueDate     time.Time       `json:"due_date"`
	ReturnDate  *time.Time      `json:"return_date"`
	DaysOverdue int             `json:"days_overdue,omitempty" gorm:"-"`
	Fine        decimal.Decimal `json:"fine,omitempty" gorm:"-"`
}
