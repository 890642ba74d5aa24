package catalog

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"nihms-bridge/models"
)

// GormClient ist die produktive Client-Implementierung über PostgreSQL.
// URIs werden beim Anlegen aus dem numerischen Primärschlüssel abgeleitet,
// sind also streng aufsteigend in Anlage-Reihenfolge.
type GormClient struct {
	db      *gorm.DB
	baseURI string
}

// NewGormClient erstellt den Katalog-Client über einer offenen DB-Verbindung.
func NewGormClient(db *gorm.DB, baseURI string) *GormClient {
	return &GormClient{db: db, baseURI: baseURI}
}

// prototype liefert eine leere Entität der gewünschten Art für gorm-Queries.
func prototype(kind EntityKind) (any, error) {
	switch kind {
	case KindGrant:
		return &models.Grant{}, nil
	case KindPublication:
		return &models.Publication{}, nil
	case KindSubmission:
		return &models.Submission{}, nil
	case KindRepositoryCopy:
		return &models.RepositoryCopy{}, nil
	case KindDeposit:
		return &models.Deposit{}, nil
	case KindJournal:
		return &models.Journal{}, nil
	case KindRepository:
		return &models.Repository{}, nil
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}

// identity liefert Primärschlüssel, URI-Feld und Art einer Entität.
func identity(entity any) (id uint, uri *string, kind EntityKind, err error) {
	switch e := entity.(type) {
	case *models.Grant:
		return e.ID, &e.URI, KindGrant, nil
	case *models.Publication:
		return e.ID, &e.URI, KindPublication, nil
	case *models.Submission:
		return e.ID, &e.URI, KindSubmission, nil
	case *models.RepositoryCopy:
		return e.ID, &e.URI, KindRepositoryCopy, nil
	case *models.Deposit:
		return e.ID, &e.URI, KindDeposit, nil
	case *models.Journal:
		return e.ID, &e.URI, KindJournal, nil
	case *models.Repository:
		return e.ID, &e.URI, KindRepository, nil
	}
	return 0, nil, "", fmt.Errorf("unsupported entity type %T", entity)
}

// FindByAttribute sucht den ältesten Treffer für ein einzelnes Attribut.
func (g *GormClient) FindByAttribute(kind EntityKind, field string, value any) (string, error) {
	proto, err := prototype(kind)
	if err != nil {
		return "", err
	}
	var uris []string
	err = g.db.Model(proto).
		Where(fmt.Sprintf("%s = ?", field), value).
		Where("uri <> ''").
		Order("id asc").
		Limit(1).
		Pluck("uri", &uris).Error
	if err != nil {
		return "", fmt.Errorf("find %s by %s: %w", kind, field, err)
	}
	if len(uris) == 0 {
		return "", nil
	}
	return uris[0], nil
}

// FindAllByAttributes sucht alle Treffer einer Attribut-Kombination,
// aufsteigend nach Anlage-Reihenfolge.
func (g *GormClient) FindAllByAttributes(kind EntityKind, attrs map[string]any) ([]string, error) {
	proto, err := prototype(kind)
	if err != nil {
		return nil, err
	}
	q := g.db.Model(proto).Where("uri <> ''")
	for field, value := range attrs {
		q = q.Where(fmt.Sprintf("%s = ?", field), value)
	}
	var uris []string
	if err := q.Order("id asc").Pluck("uri", &uris).Error; err != nil {
		return nil, fmt.Errorf("find all %s: %w", kind, err)
	}
	return uris, nil
}

// CreateResource legt die Entität an und vergibt die URI aus dem
// Primärschlüssel: <base>/<kind>/<id>.
func (g *GormClient) CreateResource(entity any) (string, error) {
	if err := g.db.Create(entity).Error; err != nil {
		return "", fmt.Errorf("create resource: %w", err)
	}
	id, uriField, kind, err := identity(entity)
	if err != nil {
		return "", err
	}
	uri := fmt.Sprintf("%s/%s/%d", g.baseURI, kind, id)
	*uriField = uri
	if err := g.db.Model(entity).Update("uri", uri).Error; err != nil {
		return "", fmt.Errorf("assign uri to new %s: %w", kind, err)
	}
	return uri, nil
}

// ReadResource lädt die Entität zur URI, oder nil bei keinem Treffer.
func (g *GormClient) ReadResource(uri string, kind EntityKind) (any, error) {
	if uri == "" {
		return nil, fmt.Errorf("uri cannot be empty when reading a %s", kind)
	}
	proto, err := prototype(kind)
	if err != nil {
		return nil, err
	}
	err = g.db.Where("uri = ?", uri).First(proto).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", kind, uri, err)
	}
	return proto, nil
}

// UpdateResource schreibt die geänderte Entität zurück. Entitäten, die nicht
// über ReadResource geladen wurden, werden vorher anhand der URI verankert.
func (g *GormClient) UpdateResource(entity any) error {
	id, uriField, kind, err := identity(entity)
	if err != nil {
		return err
	}
	if *uriField == "" {
		return fmt.Errorf("cannot update a %s without a uri", kind)
	}
	if id == 0 {
		existing, err := g.ReadResource(*uriField, kind)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("cannot update %s %s: not found", kind, *uriField)
		}
		existingID, _, _, err := identity(existing)
		if err != nil {
			return err
		}
		if err := setID(entity, existingID); err != nil {
			return err
		}
	}
	if err := g.db.Save(entity).Error; err != nil {
		return fmt.Errorf("update %s %s: %w", kind, *uriField, err)
	}
	return nil
}

func setID(entity any, id uint) error {
	switch e := entity.(type) {
	case *models.Grant:
		e.ID = id
	case *models.Publication:
		e.ID = id
	case *models.Submission:
		e.ID = id
	case *models.RepositoryCopy:
		e.ID = id
	case *models.Deposit:
		e.ID = id
	case *models.Journal:
		e.ID = id
	case *models.Repository:
		e.ID = id
	default:
		return fmt.Errorf("unsupported entity type %T", entity)
	}
	return nil
}
