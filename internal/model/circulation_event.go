package model

import "time"

// CirculationAction names the operation an event records.
type CirculationAction string

const (
	ActionIssue  CirculationAction = "issue"
	ActionReturn CirculationAction = "return"
	ActionExtend CirculationAction = "extend"
)

// CirculationOutcome records whether the attempt went through.
type CirculationOutcome string

const (
	OutcomeAccepted CirculationOutcome = "accepted"
	OutcomeFailed   CirculationOutcome = "failed"
)

// CirculationEvent is an audit entry for a circulation attempt.
// All attempts are logged regardless of success or failure.
type CirculationEvent struct {
	ID           uint               `json:"id" gorm:"primaryKey"`
	BorrowID     *uint              `json:"borrow_id,omitempty" gorm:"index"`
	CopyID       uint               `json:"copy_id" gorm:"index"`
	UserID       uint               `json:"user_id" gorm:"index"`
	Action       CirculationAction  `json:"action" gorm:"type:varchar(20);not null"`
	Outcome      CirculationOutcome `json:"outcome" gorm:"type:varchar(20);not null;index"`
	ErrorMessage string             `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt    time.Time          `json:"created_at"`
}
