package catalog

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"nihms-bridge/models"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

// Service ist die typisierte Fassade über dem abstrakten Client. Hier leben
// die Suchketten des Abgleichs (Award-Nummer mit Leerzeichen-Fallback, PMID
// vor DOI) sowie die Diff-Regel: Updates werden nur geschrieben, wenn sich
// die Entität gegenüber dem letzten gelesenen Stand geändert hat.
type Service struct {
	client Client
	log    *zap.Logger
}

// NewService erstellt die Katalog-Fassade.
func NewService(client Client, log *zap.Logger) *Service {
	return &Service{client: client, log: log}
}

// FindGrantByAwardNumber sucht den Grant zuerst mit der Award-Nummer wie
// geliefert, dann mit entfernten Leerzeichen. Liefert "" bei keinem Treffer.
func (s *Service) FindGrantByAwardNumber(awardNumber string) (string, error) {
	if awardNumber == "" {
		return "", fmt.Errorf("award number cannot be empty")
	}
	uri, err := s.client.FindByAttribute(KindGrant, "award_number", awardNumber)
	if err != nil {
		return "", err
	}
	if uri == "" {
		stripped := whitespaceRE.ReplaceAllString(awardNumber, "")
		uri, err = s.client.FindByAttribute(KindGrant, "award_number", stripped)
		if err != nil {
			return "", err
		}
	}
	return uri, nil
}

// FindPublicationByIDs sucht eine Publikation per PMID und fällt nur dann auf
// die DOI zurück, wenn die PMID-Suche leer ausgeht und eine DOI vorliegt.
func (s *Service) FindPublicationByIDs(pmid, doi string) (*models.Publication, error) {
	if pmid == "" {
		return nil, fmt.Errorf("pmid cannot be empty when searching for a publication")
	}
	publication, err := s.findPublicationByArticleID(pmid, "pmid")
	if err != nil || publication != nil {
		return publication, err
	}
	if doi != "" {
		return s.findPublicationByArticleID(doi, "doi")
	}
	return nil, nil
}

func (s *Service) findPublicationByArticleID(articleID, field string) (*models.Publication, error) {
	uri, err := s.client.FindByAttribute(KindPublication, field, articleID)
	if err != nil {
		return nil, err
	}
	if uri == "" {
		return nil, nil
	}
	return s.ReadPublication(uri)
}

// FindJournalByIssn sucht die Journal-URI zu einer ISSN bzw. ESSN.
func (s *Service) FindJournalByIssn(issn string) (string, error) {
	if issn == "" {
		return "", nil
	}
	uri, err := s.client.FindByAttribute(KindJournal, "issn", issn)
	if err != nil || uri != "" {
		return uri, err
	}
	return s.client.FindByAttribute(KindJournal, "essn", issn)
}

// FindRepositoryCopyByRepoAndPub sucht die Kopie einer Publikation in einem
// Repository. Mehr als ein Treffer ist Datenkorruption und ein harter Fehler.
func (s *Service) FindRepositoryCopyByRepoAndPub(repositoryURI, publicationURI string) (*models.RepositoryCopy, error) {
	if repositoryURI == "" {
		return nil, fmt.Errorf("repository uri cannot be empty when searching for a repository copy")
	}
	if publicationURI == "" {
		return nil, fmt.Errorf("publication uri cannot be empty when searching for a repository copy")
	}
	uris, err := s.client.FindAllByAttributes(KindRepositoryCopy, map[string]any{
		"repository_uri":  repositoryURI,
		"publication_uri": publicationURI,
	})
	if err != nil {
		return nil, err
	}
	switch len(uris) {
	case 0:
		return nil, nil
	case 1:
		return s.ReadRepositoryCopy(uris[0])
	}
	return nil, fmt.Errorf("%w: repository copies %v for repository %s and publication %s",
		ErrAmbiguousMatch, uris, repositoryURI, publicationURI)
}

// FindSubmissionsByPublicationAndUser lädt alle Submissions eines PI zu einer
// Publikation, aufsteigend nach Anlage-Reihenfolge.
func (s *Service) FindSubmissionsByPublicationAndUser(publicationURI, userURI string) ([]*models.Submission, error) {
	if publicationURI == "" {
		return nil, fmt.Errorf("publication uri cannot be empty when searching for submissions")
	}
	if userURI == "" {
		return nil, fmt.Errorf("user uri cannot be empty when searching for submissions")
	}
	uris, err := s.client.FindAllByAttributes(KindSubmission, map[string]any{
		"publication_uri": publicationURI,
		"user_uri":        userURI,
	})
	if err != nil {
		return nil, err
	}
	submissions := make([]*models.Submission, 0, len(uris))
	for _, uri := range uris {
		submission, err := s.ReadSubmission(uri)
		if err != nil {
			return nil, err
		}
		if submission != nil {
			submissions = append(submissions, submission)
		}
	}
	return submissions, nil
}

// FindDepositBySubmissionAndRepository sucht den Deposit einer Submission in
// einem Repository. Mehr als ein Treffer ist ein harter Fehler.
func (s *Service) FindDepositBySubmissionAndRepository(submissionURI, repositoryURI string) (*models.Deposit, error) {
	if submissionURI == "" {
		return nil, fmt.Errorf("submission uri cannot be empty when searching for a deposit")
	}
	if repositoryURI == "" {
		return nil, fmt.Errorf("repository uri cannot be empty when searching for a deposit")
	}
	uris, err := s.client.FindAllByAttributes(KindDeposit, map[string]any{
		"submission_uri": submissionURI,
		"repository_uri": repositoryURI,
	})
	if err != nil {
		return nil, err
	}
	switch len(uris) {
	case 0:
		return nil, nil
	case 1:
		return s.ReadDeposit(uris[0])
	}
	return nil, fmt.Errorf("%w: deposits %v for submission %s and repository %s",
		ErrAmbiguousMatch, uris, submissionURI, repositoryURI)
}

// ReadGrant lädt einen Grant, oder nil bei keinem Treffer.
func (s *Service) ReadGrant(uri string) (*models.Grant, error) {
	entity, err := s.client.ReadResource(uri, KindGrant)
	if err != nil || entity == nil {
		return nil, err
	}
	return entity.(*models.Grant), nil
}

// ReadPublication lädt eine Publikation, oder nil bei keinem Treffer.
func (s *Service) ReadPublication(uri string) (*models.Publication, error) {
	entity, err := s.client.ReadResource(uri, KindPublication)
	if err != nil || entity == nil {
		return nil, err
	}
	return entity.(*models.Publication), nil
}

// ReadSubmission lädt eine Submission, oder nil bei keinem Treffer.
func (s *Service) ReadSubmission(uri string) (*models.Submission, error) {
	entity, err := s.client.ReadResource(uri, KindSubmission)
	if err != nil || entity == nil {
		return nil, err
	}
	return entity.(*models.Submission), nil
}

// ReadRepositoryCopy lädt eine RepositoryCopy, oder nil bei keinem Treffer.
func (s *Service) ReadRepositoryCopy(uri string) (*models.RepositoryCopy, error) {
	entity, err := s.client.ReadResource(uri, KindRepositoryCopy)
	if err != nil || entity == nil {
		return nil, err
	}
	return entity.(*models.RepositoryCopy), nil
}

// ReadDeposit lädt einen Deposit, oder nil bei keinem Treffer.
func (s *Service) ReadDeposit(uri string) (*models.Deposit, error) {
	entity, err := s.client.ReadResource(uri, KindDeposit)
	if err != nil || entity == nil {
		return nil, err
	}
	return entity.(*models.Deposit), nil
}

// CreatePublication legt eine neue Publikation an.
func (s *Service) CreatePublication(publication *models.Publication) (string, error) {
	uri, err := s.client.CreateResource(publication)
	if err != nil {
		return "", err
	}
	s.log.Info("New publication created", zap.String("uri", uri))
	return uri, nil
}

// CreateSubmission legt eine neue Submission an.
func (s *Service) CreateSubmission(submission *models.Submission) (string, error) {
	uri, err := s.client.CreateResource(submission)
	if err != nil {
		return "", err
	}
	s.log.Info("New submission created", zap.String("uri", uri))
	return uri, nil
}

// CreateRepositoryCopy legt eine neue RepositoryCopy an.
func (s *Service) CreateRepositoryCopy(repoCopy *models.RepositoryCopy) (string, error) {
	uri, err := s.client.CreateResource(repoCopy)
	if err != nil {
		return "", err
	}
	s.log.Info("New repository copy created", zap.String("uri", uri))
	return uri, nil
}

// CreateDeposit legt einen neuen Deposit an.
func (s *Service) CreateDeposit(deposit *models.Deposit) (string, error) {
	uri, err := s.client.CreateResource(deposit)
	if err != nil {
		return "", err
	}
	s.log.Info("New deposit created", zap.String("uri", uri))
	return uri, nil
}

// UpdatePublication schreibt nur, wenn sich die Publikation gegenüber dem
// gespeicherten Stand geändert hat.
func (s *Service) UpdatePublication(publication *models.Publication) error {
	orig, err := s.ReadPublication(publication.URI)
	if err != nil {
		return err
	}
	if orig != nil && orig.Equals(publication) {
		return nil
	}
	if err := s.client.UpdateResource(publication); err != nil {
		return err
	}
	s.log.Info("Publication updated", zap.String("uri", publication.URI))
	return nil
}

// UpdateSubmission schreibt nur bei tatsächlicher Änderung.
func (s *Service) UpdateSubmission(submission *models.Submission) error {
	orig, err := s.ReadSubmission(submission.URI)
	if err != nil {
		return err
	}
	if orig != nil && orig.Equals(submission) {
		return nil
	}
	if err := s.client.UpdateResource(submission); err != nil {
		return err
	}
	s.log.Info("Submission updated", zap.String("uri", submission.URI))
	return nil
}

// UpdateRepositoryCopy schreibt nur bei tatsächlicher Änderung.
func (s *Service) UpdateRepositoryCopy(repoCopy *models.RepositoryCopy) error {
	orig, err := s.ReadRepositoryCopy(repoCopy.URI)
	if err != nil {
		return err
	}
	if orig != nil && orig.Equals(repoCopy) {
		return nil
	}
	if err := s.client.UpdateResource(repoCopy); err != nil {
		return err
	}
	s.log.Info("Repository copy updated", zap.String("uri", repoCopy.URI))
	return nil
}

// UpdateDeposit schreibt nur bei tatsächlicher Änderung.
func (s *Service) UpdateDeposit(deposit *models.Deposit) error {
	orig, err := s.ReadDeposit(deposit.URI)
	if err != nil {
		return err
	}
	if orig != nil && orig.Equals(deposit) {
		return nil
	}
	if err := s.client.UpdateResource(deposit); err != nil {
		return err
	}
	s.log.Info("Deposit updated", zap.String("uri", deposit.URI))
	return nil
}

// UpdateGrant schreibt nur bei tatsächlicher Änderung. Die Award-Nummer ist
// unveränderlich und wird vom gespeicherten Stand übernommen.
func (s *Service) UpdateGrant(grant *models.Grant) error {
	orig, err := s.ReadGrant(grant.URI)
	if err != nil {
		return err
	}
	if orig != nil {
		grant.AwardNumber = orig.AwardNumber
		if orig.Equals(grant) {
			return nil
		}
	}
	if err := s.client.UpdateResource(grant); err != nil {
		return err
	}
	s.log.Info("Grant updated", zap.String("uri", grant.URI))
	return nil
}
