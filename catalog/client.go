// Package catalog kapselt den Zugriff auf den institutionellen
// Forschungs-Katalog: ein abstrakter CRUD-Client plus ein typisierter
// Service mit den Suchketten des NIHMS-Abgleichs.
package catalog

import "errors"

// EntityKind benennt die Entitätsart für die generischen Client-Operationen.
type EntityKind string

const (
	KindGrant          EntityKind = "grants"
	KindPublication    EntityKind = "publications"
	KindSubmission     EntityKind = "submissions"
	KindRepositoryCopy EntityKind = "repositoryCopies"
	KindDeposit        EntityKind = "deposits"
	KindJournal        EntityKind = "journals"
	KindRepository     EntityKind = "repositories"
)

// ErrAmbiguousMatch zeigt an, dass eine Suche, die höchstens einen Treffer
// liefern darf, mehrere geliefert hat. Das deutet auf korrupte Katalogdaten
// hin und bricht die Verarbeitung des Datensatzes ab.
var ErrAmbiguousMatch = errors.New("ambiguous match: multiple records where at most one is allowed")

// Client ist der abstrakte Entitäts-Store. Suchen liefern URIs, Read liefert
// die vollständige Entität. Die produktive Implementierung ist GormClient,
// Tests ersetzen das Interface durch In-Memory-Fakes.
type Client interface {
	// FindByAttribute sucht den ersten Treffer für ein einzelnes Attribut
	// und gibt dessen URI zurück, oder "" bei keinem Treffer.
	FindByAttribute(kind EntityKind, field string, value any) (string, error)

	// FindAllByAttributes sucht alle Treffer für eine Attribut-Kombination,
	// sortiert nach Anlage-Reihenfolge (aufsteigende URI).
	FindAllByAttributes(kind EntityKind, attrs map[string]any) ([]string, error)

	// CreateResource legt die Entität an und gibt die vergebene URI zurück.
	CreateResource(entity any) (string, error)

	// ReadResource lädt die Entität zur URI, oder nil bei keinem Treffer.
	ReadResource(uri string, kind EntityKind) (any, error)

	// UpdateResource schreibt die geänderte Entität zurück.
	UpdateResource(entity any) error
}
