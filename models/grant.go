package models

import (
	"slices"
	"time"
)

// Grant repräsentiert ein Förder-Award im Katalog. Die Award-Nummer ist nach
// dem Anlegen unveränderlich, die Submission-Liste wächst nur.
type Grant struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	URI         string   `json:"uri" gorm:"column:uri;uniqueIndex"`
	AwardNumber string   `json:"award_number" gorm:"column:award_number;index;not null"`
	PiURI       string   `json:"pi" gorm:"column:pi_uri"`
	Submissions []string `json:"submissions" gorm:"column:submissions;serializer:json"`
}

// Equals vergleicht die fachlichen Felder (ohne Primärschlüssel und Timestamps).
func (g *Grant) Equals(other *Grant) bool {
	if other == nil {
		return false
	}
	return g.URI == other.URI &&
		g.AwardNumber == other.AwardNumber &&
		g.PiURI == other.PiURI &&
		slices.Equal(g.Submissions, other.Submissions)
}
