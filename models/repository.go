package models

import "time"

// Repository ist ein Ziel-Repository im Katalog (z.B. NIHMS/PMC).
type Repository struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	URI  string `json:"uri" gorm:"column:uri;uniqueIndex"`
	Key  string `json:"key" gorm:"column:repo_key;uniqueIndex"`
	Name string `json:"name"`
}
