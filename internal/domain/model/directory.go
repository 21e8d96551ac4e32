package model

// JobRef is the slice of a job-board job row the billing side needs.
type JobRef struct {
	ID         int64  `json:"id"`
	EmployerID int64  `json:"employer_id"`
	Title      string `json:"title"`
}

// HolderProfile is the display data for a holder, read from the core user tables.
type HolderProfile struct {
	Holder      Holder `json:"holder"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}
