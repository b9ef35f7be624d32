package models

import "time"

// OrganisationOutcome records the result of crawling one organisation.
type OrganisationOutcome struct {
	Code    string `json:"code"`
	Courses int    `json:"courses"`
	Error   string `json:"error,omitempty"`
}

// CourseFailure records a course payload that failed to normalize or write.
// Failures are collected rather than propagated so one bad course cannot
// abort its siblings.
type CourseFailure struct {
	CourseCode string `json:"course_code"`
	Reason     string `json:"reason"`
}

// SyncReport summarises a single synchronization run.
type SyncReport struct {
	RunID              string                `json:"run_id"`
	SessionCode        string                `json:"session_code"`
	StartedAt          time.Time             `json:"started_at"`
	FinishedAt         time.Time             `json:"finished_at"`
	Organisations      []OrganisationOutcome `json:"organisations"`
	CoursesSynced      int                   `json:"courses_synced"`
	CourseFailures     []CourseFailure       `json:"course_failures,omitempty"`
	DuplicatesSkipped  int                   `json:"duplicates_skipped"`
	OrganisationsTotal int                   `json:"organisations_total"`
}

// Elapsed returns the run duration.
func (r SyncReport) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailedOrganisations counts organisations whose crawl failed.
func (r SyncReport) FailedOrganisations() int {
	failed := 0
	for _, outcome := range r.Organisations {
		if outcome.Error != "" {
			failed++
		}
	}
	return failed
}
