package models

import "time"

// Deposit verfolgt den Weg einer Submission in ein bestimmtes Repository.
// Pro (Submission, Repository) existiert genau ein Deposit.
type Deposit struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	URI           string        `json:"uri" gorm:"column:uri;uniqueIndex"`
	SubmissionURI string        `json:"submission" gorm:"column:submission_uri;index"`
	RepositoryURI string        `json:"repository" gorm:"column:repository_uri;index"`
	AssignedID    string        `json:"assigned_id,omitempty" gorm:"column:assigned_id"`
	AccessURL     string        `json:"access_url,omitempty" gorm:"column:access_url"`
	Status        DepositStatus `json:"status,omitempty" gorm:"column:status"`

	// Requested ist false, wenn der Deposit von außen (NIHMS) beobachtet
	// wurde statt vom PI angestoßen. Dieser Abgleich legt nur beobachtete
	// Deposits an.
	Requested bool `json:"requested" gorm:"column:requested"`

	// UserActionRequired zeigt an, dass ein begonnener Deposit in der
	// Non-Compliant-Liste aufgetaucht ist und der PI eingreifen muss.
	UserActionRequired bool `json:"user_action_required" gorm:"column:user_action_required"`
}

// Equals vergleicht die fachlichen Felder (ohne Primärschlüssel und Timestamps).
func (d *Deposit) Equals(other *Deposit) bool {
	if other == nil {
		return false
	}
	return d.URI == other.URI &&
		d.SubmissionURI == other.SubmissionURI &&
		d.RepositoryURI == other.RepositoryURI &&
		d.AssignedID == other.AssignedID &&
		d.AccessURL == other.AccessURL &&
		d.Status == other.Status &&
		d.Requested == other.Requested &&
		d.UserActionRequired == other.UserActionRequired
}
