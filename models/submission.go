package models

import (
	"slices"
	"time"
)

// Submission ist der Vorgang, mit dem ein PI eine Publikation über ein oder
// mehrere Repositories verfügbar macht. Pro (Publikation, PI) darf höchstens
// eine Submission ein bestimmtes Repository referenzieren.
type Submission struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	URI            string     `json:"uri" gorm:"column:uri;uniqueIndex"`
	PublicationURI string     `json:"publication" gorm:"column:publication_uri;index"`
	UserURI        string     `json:"user" gorm:"column:user_uri;index"`
	Repositories   []string   `json:"repositories" gorm:"column:repositories;serializer:json"`
	Grants         []string   `json:"grants" gorm:"column:grants;serializer:json"`
	Deposits       []string   `json:"deposits" gorm:"column:deposits;serializer:json"`
	Submitted      bool       `json:"submitted"`
	Source         Source     `json:"source,omitempty"`
	SubmittedDate  *time.Time `json:"submitted_date,omitempty"`

	AggregatedDepositStatus AggregatedDepositStatus `json:"aggregated_deposit_status,omitempty" gorm:"column:aggregated_deposit_status"`
}

// HasRepository prüft, ob die Submission das Repository bereits referenziert.
func (s *Submission) HasRepository(repositoryURI string) bool {
	return slices.Contains(s.Repositories, repositoryURI)
}

// Equals vergleicht die fachlichen Felder (ohne Primärschlüssel und Timestamps).
func (s *Submission) Equals(other *Submission) bool {
	if other == nil {
		return false
	}
	if (s.SubmittedDate == nil) != (other.SubmittedDate == nil) {
		return false
	}
	if s.SubmittedDate != nil && !s.SubmittedDate.Equal(*other.SubmittedDate) {
		return false
	}
	return s.URI == other.URI &&
		s.PublicationURI == other.PublicationURI &&
		s.UserURI == other.UserURI &&
		slices.Equal(s.Repositories, other.Repositories) &&
		slices.Equal(s.Grants, other.Grants) &&
		slices.Equal(s.Deposits, other.Deposits) &&
		s.Submitted == other.Submitted &&
		s.Source == other.Source &&
		s.AggregatedDepositStatus == other.AggregatedDepositStatus
}
