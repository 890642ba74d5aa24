package models

import "time"

// Journal ist das Nachschlage-Ziel für die ISSN/ESSN-Zuordnung einer Publikation.
type Journal struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	URI  string `json:"uri" gorm:"column:uri;uniqueIndex"`
	Name string `json:"name"`
	Issn string `json:"issn,omitempty" gorm:"column:issn;index"`
	Essn string `json:"essn,omitempty" gorm:"column:essn;index"`
}
