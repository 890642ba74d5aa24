package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"nihms-bridge/config"
	"nihms-bridge/models"
	"nihms-bridge/providers"
)

// ErrNoMatchingGrant bricht einen Datensatz ab: ohne Grant gibt es keinen PI
// und damit keine Submission.
var ErrNoMatchingGrant = errors.New("no grant matching award number")

// Catalog ist die vom Transformer und Loader benötigte Sicht auf den
// Katalog-Service. Tests ersetzen sie durch einen In-Memory-Fake.
type Catalog interface {
	FindGrantByAwardNumber(awardNumber string) (string, error)
	ReadGrant(uri string) (*models.Grant, error)
	UpdateGrant(grant *models.Grant) error

	FindPublicationByIDs(pmid, doi string) (*models.Publication, error)
	FindJournalByIssn(issn string) (string, error)
	CreatePublication(publication *models.Publication) (string, error)
	UpdatePublication(publication *models.Publication) error

	FindRepositoryCopyByRepoAndPub(repositoryURI, publicationURI string) (*models.RepositoryCopy, error)
	CreateRepositoryCopy(repoCopy *models.RepositoryCopy) (string, error)
	UpdateRepositoryCopy(repoCopy *models.RepositoryCopy) error

	FindSubmissionsByPublicationAndUser(publicationURI, userURI string) ([]*models.Submission, error)
	CreateSubmission(submission *models.Submission) (string, error)
	UpdateSubmission(submission *models.Submission) error

	FindDepositBySubmissionAndRepository(submissionURI, repositoryURI string) (*models.Deposit, error)
	ReadDeposit(uri string) (*models.Deposit, error)
	CreateDeposit(deposit *models.Deposit) (string, error)
	UpdateDeposit(deposit *models.Deposit) error
}

// SubmissionTransformer wandelt einen NIHMS-Datensatz in das SubmissionDTO
// um, das der Loader anschließend in den Katalog schreibt. Pro Entität wird
// entschieden: existiert ein Treffer, wird er fortgeschrieben, sonst neu
// aufgebaut.
type SubmissionTransformer struct {
	catalog    Catalog
	resolver   providers.MetadataResolver
	aggregator StatusAggregator

	repositoryURI  string
	pmcURLTemplate string

	log *zap.Logger
}

// NewSubmissionTransformer erstellt den Transformer. Ein nil-Aggregator wird
// durch die Default-Regel ersetzt.
func NewSubmissionTransformer(catalog Catalog, resolver providers.MetadataResolver, aggregator StatusAggregator, cfg *config.Config, log *zap.Logger) *SubmissionTransformer {
	if aggregator == nil {
		aggregator = KeepCurrentAggregator{}
	}
	return &SubmissionTransformer{
		catalog:        catalog,
		resolver:       resolver,
		aggregator:     aggregator,
		repositoryURI:  cfg.NihmsRepositoryURI,
		pmcURLTemplate: cfg.PmcURLTemplate,
		log:            log,
	}
}

// Transform führt den Abgleich für einen Datensatz durch. Fehler betreffen
// immer nur diesen Datensatz; der Batch-Treiber loggt sie und macht weiter.
func (t *SubmissionTransformer) Transform(pub *models.NihmsPublication) (*models.SubmissionDTO, error) {
	// Ein passender Grant ist Voraussetzung für alles Weitere.
	grantURI, err := t.catalog.FindGrantByAwardNumber(pub.GrantNumber)
	if err != nil {
		return nil, err
	}
	if grantURI == "" {
		return nil, fmt.Errorf("%w %q, cannot process record with pmid %s", ErrNoMatchingGrant, pub.GrantNumber, pub.Pmid)
	}
	grant, err := t.catalog.ReadGrant(grantURI)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, fmt.Errorf("grant %s could not be read from the catalog", grantURI)
	}

	dto := &models.SubmissionDTO{GrantURI: grantURI}

	publication, err := t.retrieveOrCreatePublication(pub)
	if err != nil {
		return nil, err
	}
	dto.Publication = publication

	repoCopy, err := t.retrieveOrCreateRepositoryCopy(pub, publication)
	if err != nil {
		return nil, err
	}
	dto.RepositoryCopy = repoCopy

	submission, err := t.retrieveOrCreateSubmission(pub, publication, grant, repoCopy != nil)
	if err != nil {
		return nil, err
	}
	dto.Submission = submission

	deposit, err := t.reconcileDeposit(pub, submission)
	if err != nil {
		return nil, err
	}
	dto.Deposit = deposit

	if err := t.aggregateSubmissionStatus(submission, deposit); err != nil {
		return nil, err
	}

	return dto, nil
}

// retrieveOrCreatePublication sucht die Publikation per PMID (mit
// DOI-Fallback) und baut sie andernfalls aus den Entrez-Metadaten neu auf.
// Beim Fortschreiben werden nur leere Identifikatoren befüllt.
func (t *SubmissionTransformer) retrieveOrCreatePublication(pub *models.NihmsPublication) (*models.Publication, error) {
	// Liefert der Resolver nil, war die Abfrage erfolgreich, aber Entrez
	// kennt die PMID nicht; nur Transportfehler brechen den Datensatz ab.
	record, err := t.resolver.Lookup(pub.Pmid)
	if err != nil {
		return nil, err
	}
	doi := ""
	if record != nil {
		doi = record.Doi
	}

	publication, err := t.catalog.FindPublicationByIDs(pub.Pmid, doi)
	if err != nil {
		return nil, err
	}
	if publication == nil {
		if record == nil {
			return nil, fmt.Errorf("no existing publication and no metadata available for pmid %q", pub.Pmid)
		}
		return t.initiateNewPublication(record)
	}

	if publication.Doi == "" && doi != "" {
		publication.Doi = doi
	}
	if publication.Pmid == "" {
		publication.Pmid = pub.Pmid
	}
	return publication, nil
}

func (t *SubmissionTransformer) initiateNewPublication(record *providers.PubMedRecord) (*models.Publication, error) {
	t.log.Info("No existing publication found, initiating new record", zap.String("pmid", record.Pmid))

	journalURI, err := t.catalog.FindJournalByIssn(record.Issn)
	if err != nil {
		return nil, err
	}
	if journalURI == "" {
		// ISSN unbekannt, ESSN versuchen
		journalURI, err = t.catalog.FindJournalByIssn(record.Essn)
		if err != nil {
			return nil, err
		}
	}

	return &models.Publication{
		Pmid:       record.Pmid,
		Doi:        record.Doi,
		Title:      record.Title,
		Volume:     record.Volume,
		Issue:      record.Issue,
		JournalURI: journalURI,
	}, nil
}

// retrieveOrCreateRepositoryCopy sucht die NIHMS-Kopie der Publikation.
// Neu angelegt wird nur, wenn der Export bereits eine externe ID nennt —
// vorher ist im Archiv nichts passiert, das eine Kopie rechtfertigt.
func (t *SubmissionTransformer) retrieveOrCreateRepositoryCopy(pub *models.NihmsPublication, publication *models.Publication) (*models.RepositoryCopy, error) {
	var repoCopy *models.RepositoryCopy
	var err error
	if publication.URI != "" {
		repoCopy, err = t.catalog.FindRepositoryCopyByRepoAndPub(t.repositoryURI, publication.URI)
		if err != nil {
			return nil, err
		}
	}

	if repoCopy == nil {
		if pub.NihmsID == "" && pub.PmcID == "" {
			return nil, nil
		}
		return t.initiateNewRepositoryCopy(pub, publication.URI), nil
	}

	repoCopy.CopyStatus = CalcRepoCopyStatus(pub, repoCopy.CopyStatus, t.log)
	t.mergeExternalIDs(repoCopy, pub)
	if repoCopy.AccessURL == "" && pub.PmcID != "" {
		repoCopy.AccessURL = t.accessURL(pub.PmcID)
	}
	return repoCopy, nil
}

func (t *SubmissionTransformer) initiateNewRepositoryCopy(pub *models.NihmsPublication, publicationURI string) *models.RepositoryCopy {
	t.log.Info("NIHMS repository copy needed, initiating new record", zap.String("pmid", pub.Pmid))

	repoCopy := &models.RepositoryCopy{
		RepositoryURI:  t.repositoryURI,
		PublicationURI: publicationURI,
		CopyStatus:     CalcRepoCopyStatus(pub, models.CopyStatusUnknown, t.log),
	}
	t.mergeExternalIDs(repoCopy, pub)
	if pub.PmcID != "" {
		repoCopy.AccessURL = t.accessURL(pub.PmcID)
	}
	return repoCopy
}

// mergeExternalIDs trägt fehlende externe IDs nach; die endgültige PMCID
// steht vor der vorläufigen NIHMSID.
func (t *SubmissionTransformer) mergeExternalIDs(repoCopy *models.RepositoryCopy, pub *models.NihmsPublication) {
	if pub.PmcID != "" && !slices.Contains(repoCopy.ExternalIDs, pub.PmcID) {
		repoCopy.ExternalIDs = append([]string{pub.PmcID}, repoCopy.ExternalIDs...)
	}
	if pub.NihmsID != "" && !slices.Contains(repoCopy.ExternalIDs, pub.NihmsID) {
		repoCopy.ExternalIDs = append(repoCopy.ExternalIDs, pub.NihmsID)
	}
}

// accessURL baut die PMC-Artikel-URL. NIHMS liefert die PMCID mal mit, mal
// ohne "PMC"-Präfix; vor dem Einsetzen wird sie auf die Präfix-Form gebracht.
func (t *SubmissionTransformer) accessURL(pmcID string) string {
	if !strings.HasPrefix(pmcID, "PMC") {
		pmcID = "PMC" + pmcID
	}
	return fmt.Sprintf(t.pmcURLTemplate, pmcID)
}

// retrieveOrCreateSubmission sucht unter den Submissions des PI zu dieser
// Publikation zuerst eine, die das NIHMS-Repository bereits referenziert
// (zwei oder mehr sind Datenkorruption), dann die älteste noch nicht
// abgeschickte, und baut andernfalls eine neue auf.
func (t *SubmissionTransformer) retrieveOrCreateSubmission(pub *models.NihmsPublication, publication *models.Publication, grant *models.Grant, hasRepoCopy bool) (*models.Submission, error) {
	var submission *models.Submission

	if publication.URI != "" {
		candidates, err := t.catalog.FindSubmissionsByPublicationAndUser(publication.URI, grant.PiURI)
		if err != nil {
			return nil, err
		}

		var nihmsSubmissions []*models.Submission
		for _, candidate := range candidates {
			if candidate.HasRepository(t.repositoryURI) {
				nihmsSubmissions = append(nihmsSubmissions, candidate)
			}
		}
		switch {
		case len(nihmsSubmissions) == 1:
			submission = nihmsSubmissions[0]
		case len(nihmsSubmissions) > 1:
			return nil, fmt.Errorf("submissions %s and %s both reference the NIHMS repository, only one may; check the catalog before reloading the record",
				nihmsSubmissions[0].URI, nihmsSubmissions[1].URI)
		}

		if submission == nil {
			// Kandidaten kommen in Anlage-Reihenfolge; die älteste noch
			// nicht abgeschickte Submission nimmt das Repository auf.
			for _, candidate := range candidates {
				if !candidate.Submitted {
					submission = candidate
					break
				}
			}
		}
	}

	if submission == nil {
		submission = t.initiateNewSubmission(grant, publication.URI)
	}

	// Existiert eine RepositoryCopy, hat NIHMS die Einreichung gesehen: die
	// Submission gilt ab jetzt als abgeschickt und stammt aus externer Quelle.
	if hasRepoCopy && !submission.Submitted && len(submission.Repositories) == 1 {
		submission.Submitted = true
		submission.Source = models.SourceOther
		if pub.FileDepositedDate != "" {
			if depositedAt, err := models.ParseNihmsDate(pub.FileDepositedDate); err == nil {
				submission.SubmittedDate = &depositedAt
			} else {
				t.log.Warn("Could not parse file deposited date, leaving submitted date empty",
					zap.String("pmid", pub.Pmid), zap.Error(err))
			}
		}
	}

	// Der auflösende Grant muss in der Grant-Liste stehen, genau einmal.
	if !slices.Contains(submission.Grants, grant.URI) {
		submission.Grants = append(submission.Grants, grant.URI)
	}

	return submission, nil
}

func (t *SubmissionTransformer) initiateNewSubmission(grant *models.Grant, publicationURI string) *models.Submission {
	t.log.Info("No submission to the NIHMS repository found for grant, initiating new record",
		zap.String("grant", grant.URI))

	return &models.Submission{
		PublicationURI: publicationURI,
		UserURI:        grant.PiURI,
		Repositories:   []string{t.repositoryURI},
		Grants:         []string{grant.URI},
		Source:         models.SourceOther,
		Submitted:      false,
	}
}

// reconcileDeposit schreibt den Deposit der Submission im NIHMS-Repository
// fort bzw. legt ihn an, sobald der Datensatz einen Deposit rechtfertigt.
func (t *SubmissionTransformer) reconcileDeposit(pub *models.NihmsPublication, submission *models.Submission) (*models.Deposit, error) {
	var deposit *models.Deposit
	var err error
	if submission.URI != "" {
		deposit, err = t.catalog.FindDepositBySubmissionAndRepository(submission.URI, t.repositoryURI)
		if err != nil {
			return nil, err
		}
	}

	if deposit == nil {
		if !NeedNihmsDeposit(pub) {
			return nil, nil
		}
		deposit = &models.Deposit{
			RepositoryURI:      t.repositoryURI,
			SubmissionURI:      submission.URI,
			Status:             CalcDepositStatus(pub, models.DepositStatusNone, t.log),
			Requested:          false,
			UserActionRequired: DepositUserActionRequired(pub),
		}
	} else {
		deposit.Status = CalcDepositStatus(pub, deposit.Status, t.log)
		deposit.UserActionRequired = DepositUserActionRequired(pub)
	}

	// Die endgültige Archiv-ID gewinnt gegen die vorläufige.
	if pub.PmcID != "" {
		deposit.AssignedID = pub.PmcID
		if deposit.AccessURL == "" {
			deposit.AccessURL = t.accessURL(pub.PmcID)
		}
	} else if deposit.AssignedID == "" && pub.NihmsID != "" {
		deposit.AssignedID = pub.NihmsID
	}

	return deposit, nil
}

// aggregateSubmissionStatus leitet den Gesamtstatus der Submission aus allen
// ihren Deposits ab. missingDeposits ist hier immer false.
func (t *SubmissionTransformer) aggregateSubmissionStatus(submission *models.Submission, current *models.Deposit) error {
	var deposits []*models.Deposit
	for _, uri := range submission.Deposits {
		if current != nil && current.URI == uri {
			continue
		}
		deposit, err := t.catalog.ReadDeposit(uri)
		if err != nil {
			return err
		}
		if deposit != nil {
			deposits = append(deposits, deposit)
		}
	}
	if current != nil {
		deposits = append(deposits, current)
	}

	submission.AggregatedDepositStatus = t.aggregator.Aggregate(submission.AggregatedDepositStatus, deposits, false)
	return nil
}
