package model

import "time"

// Status is the overall outcome of one dataset validation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// DateFilter is the window that was actually applied to a fetch.
type DateFilter struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ValidationResult is the in-memory outcome of validating one dataset.
// Anomalies always holds the full list; the store only receives the persisted view.
type ValidationResult struct {
	RunID               string      `json:"run_id"`
	DatasetName         string      `json:"table_name"`
	RunTimestamp        time.Time   `json:"validation_timestamp"`
	TotalRows           int         `json:"total_rows"`
	Anomalies           []Anomaly   `json:"anomalies"`
	AnomaliesCount      int         `json:"anomalies_count"`
	Status              Status      `json:"status"`
	ChecksPerformed     []string    `json:"validations_performed"`
	DateFilter          *DateFilter `json:"date_filter,omitempty"`
	TotalAnomaliesFound int         `json:"total_anomalies_found"`
	ErrorsStored        int         `json:"errors_stored"`
	Error               string      `json:"error,omitempty"`
}

// BatchSummary aggregates a validate-all run.
type BatchSummary struct {
	TotalTables           int                 `json:"total_tables"`
	SuccessfulValidations int                 `json:"successful_validations"`
	TotalAnomalies        int                 `json:"total_anomalies"`
	Results               []*ValidationResult `json:"results"`
}

// ValidationResultRecord is the durable row in validation_results.
type ValidationResultRecord struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	RunID                string    `gorm:"size:36;index" json:"run_id"`
	DatasetName          string    `gorm:"column:table_name;size:200;index" json:"table_name"`
	Status               string    `gorm:"size:20;index" json:"status"`
	TotalRows            int       `json:"total_rows"`
	AnomaliesCount       int       `json:"anomalies_count"`
	Anomalies            string    `gorm:"type:jsonb" json:"anomalies"`
	ValidationsPerformed string    `gorm:"type:jsonb" json:"validations_performed"`
	FilterStart          *string   `gorm:"column:filter_start_date;size:10" json:"filter_start_date,omitempty"`
	FilterEnd            *string   `gorm:"column:filter_end_date;size:10" json:"filter_end_date,omitempty"`
	ValidationTimestamp  time.Time `gorm:"index" json:"validation_timestamp"`
	CreatedAt            time.Time `json:"created_at"`
}

func (ValidationResultRecord) TableName() string { return "validation_results" }
