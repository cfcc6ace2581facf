package model

// DatasetQuery describes a read against a source dataset.
// Empty fields are not applied. Start and End are inclusive YYYY-MM-DD dates.
type DatasetQuery struct {
	Table      string
	DateColumn string
	Start      string
	End        string
	EqColumn   string
	EqValue    string
}

// Row is one record as returned by a source, keyed by column name.
type Row = map[string]interface{}
