package models

import (
	"slices"
	"time"
)

// RepositoryCopy ist die Kopie einer Publikation in einem bestimmten
// Repository. Pro (Repository, Publikation) existiert höchstens ein Eintrag;
// mehr als einer bedeutet Datenkorruption im Katalog.
type RepositoryCopy struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	URI            string     `json:"uri" gorm:"column:uri;uniqueIndex"`
	RepositoryURI  string     `json:"repository" gorm:"column:repository_uri;index"`
	PublicationURI string     `json:"publication" gorm:"column:publication_uri;index"`
	ExternalIDs    []string   `json:"external_ids" gorm:"column:external_ids;serializer:json"`
	AccessURL      string     `json:"access_url,omitempty" gorm:"column:access_url"`
	CopyStatus     CopyStatus `json:"copy_status,omitempty" gorm:"column:copy_status"`
}

// Equals vergleicht die fachlichen Felder (ohne Primärschlüssel und Timestamps).
func (r *RepositoryCopy) Equals(other *RepositoryCopy) bool {
	if other == nil {
		return false
	}
	return r.URI == other.URI &&
		r.RepositoryURI == other.RepositoryURI &&
		r.PublicationURI == other.PublicationURI &&
		slices.Equal(r.ExternalIDs, other.ExternalIDs) &&
		r.AccessURL == other.AccessURL &&
		r.CopyStatus == other.CopyStatus
}
