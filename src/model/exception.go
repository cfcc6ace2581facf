package model

import "time"

// Exception is a failure that escaped a validation run and was captured
// for later inspection.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Service string `gorm:"size:100;index" json:"service"` // e.g. "sectorsguard"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "validation"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "ValidateAll"
	Dataset string `gorm:"size:200;index" json:"dataset,omitempty"`
	RunID   string `gorm:"size:36" json:"run_id,omitempty"`

	Message string `gorm:"type:text" json:"message"`
	Stack   string `gorm:"type:text" json:"stack"`

	Level string `gorm:"size:20;index" json:"level"` // info | warn | error | fatal

	// Extra context stored as JSON
	Context string `gorm:"type:jsonb" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
