package domain

import "time"

// Conference is the hearing all per-conference state is keyed against.
type Conference struct {
	ID          string    `json:"id"`
	CaseName    string    `json:"case_name"`
	CaseNumber  string    `json:"case_number"`
	ScheduledAt time.Time `json:"scheduled_at"`
}
