package models

import "time"

// Publication ist der kanonische bibliografische Eintrag für einen Artikel.
// Pro Artikel wird genau ein Eintrag angelegt; spätere Datensätze füllen nur
// noch leere Felder auf (eine befüllte PMID/DOI wird nie überschrieben).
type Publication struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	URI        string `json:"uri" gorm:"column:uri;uniqueIndex"`
	Pmid       string `json:"pmid" gorm:"column:pmid;index"`
	Doi        string `json:"doi,omitempty" gorm:"column:doi;index"`
	Title      string `json:"title,omitempty"`
	JournalURI string `json:"journal,omitempty" gorm:"column:journal_uri"`
	Volume     string `json:"volume,omitempty"`
	Issue      string `json:"issue,omitempty"`
}

// Equals vergleicht die fachlichen Felder (ohne Primärschlüssel und Timestamps).
func (p *Publication) Equals(other *Publication) bool {
	if other == nil {
		return false
	}
	return p.URI == other.URI &&
		p.Pmid == other.Pmid &&
		p.Doi == other.Doi &&
		p.Title == other.Title &&
		p.JournalURI == other.JournalURI &&
		p.Volume == other.Volume &&
		p.Issue == other.Issue
}
