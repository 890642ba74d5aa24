package services

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"nihms-bridge/models"
)

// ErrIncompleteDTO bricht das Laden ab: ohne Submission und Grant-Referenz
// lässt sich der Graph nicht konsistent schreiben.
var ErrIncompleteDTO = errors.New("incomplete submission DTO")

// LoadOutcome zählt, welche Entitäten beim Laden neu angelegt wurden.
type LoadOutcome struct {
	CreatedPublication    bool
	CreatedSubmission     bool
	CreatedRepositoryCopy bool
	CreatedDeposit        bool
}

// SubmissionLoader schreibt ein SubmissionDTO in den Katalog. Das Laden ist
// zweiphasig: erst bekommt die Submission ihre URI, dann wird der Deposit
// daran gehängt und die Submission bei Bedarf nachgezogen.
type SubmissionLoader struct {
	catalog Catalog
	log     *zap.Logger
}

// NewSubmissionLoader erstellt den Loader.
func NewSubmissionLoader(catalog Catalog, log *zap.Logger) *SubmissionLoader {
	return &SubmissionLoader{catalog: catalog, log: log}
}

// Load persistiert den Entitätsgraphen eines DTOs in Abhängigkeitsreihenfolge:
// Publication, Submission, RepositoryCopy, Deposit, zuletzt der Grant-Backlink.
func (l *SubmissionLoader) Load(dto *models.SubmissionDTO) (LoadOutcome, error) {
	var outcome LoadOutcome

	if dto == nil || dto.Submission == nil {
		return outcome, fmt.Errorf("%w: submission missing, cannot load", ErrIncompleteDTO)
	}
	if dto.GrantURI == "" {
		return outcome, fmt.Errorf("%w: grant reference missing, cannot load", ErrIncompleteDTO)
	}

	publicationURI, created, err := l.loadPublication(dto.Publication)
	if err != nil {
		return outcome, err
	}
	outcome.CreatedPublication = created

	submission := dto.Submission
	submission.PublicationURI = publicationURI

	submissionUpdated := false
	if submission.URI == "" {
		uri, err := l.catalog.CreateSubmission(submission)
		if err != nil {
			return outcome, err
		}
		submission.URI = uri
		outcome.CreatedSubmission = true
	} else {
		submissionUpdated = true
	}

	if dto.RepositoryCopy != nil {
		dto.RepositoryCopy.PublicationURI = publicationURI
		created, err := l.loadRepositoryCopy(dto.RepositoryCopy)
		if err != nil {
			return outcome, err
		}
		outcome.CreatedRepositoryCopy = created
	}

	if dto.Deposit != nil {
		created, linked, err := l.loadDeposit(dto.Deposit, submission)
		if err != nil {
			return outcome, err
		}
		outcome.CreatedDeposit = created
		if linked {
			submissionUpdated = true
		}
	}

	if submissionUpdated {
		if err := l.catalog.UpdateSubmission(submission); err != nil {
			return outcome, err
		}
	}

	if err := l.linkSubmissionToGrant(dto.GrantURI, submission.URI); err != nil {
		return outcome, err
	}

	return outcome, nil
}

func (l *SubmissionLoader) loadPublication(publication *models.Publication) (string, bool, error) {
	if publication == nil {
		return "", false, fmt.Errorf("%w: publication missing, cannot load", ErrIncompleteDTO)
	}
	if publication.URI == "" {
		uri, err := l.catalog.CreatePublication(publication)
		if err != nil {
			return "", false, err
		}
		publication.URI = uri
		return uri, true, nil
	}
	if err := l.catalog.UpdatePublication(publication); err != nil {
		return "", false, err
	}
	return publication.URI, false, nil
}

func (l *SubmissionLoader) loadRepositoryCopy(repoCopy *models.RepositoryCopy) (bool, error) {
	if repoCopy.URI == "" {
		uri, err := l.catalog.CreateRepositoryCopy(repoCopy)
		if err != nil {
			return false, err
		}
		repoCopy.URI = uri
		return true, nil
	}
	return false, l.catalog.UpdateRepositoryCopy(repoCopy)
}

// loadDeposit hängt einen neuen Deposit an die (jetzt persistierte) Submission
// und meldet zurück, ob deren Deposit-Liste gewachsen ist.
func (l *SubmissionLoader) loadDeposit(deposit *models.Deposit, submission *models.Submission) (created, linked bool, err error) {
	if deposit.URI == "" {
		deposit.SubmissionURI = submission.URI
		uri, err := l.catalog.CreateDeposit(deposit)
		if err != nil {
			return false, false, err
		}
		deposit.URI = uri
		submission.Deposits = append(submission.Deposits, uri)
		return true, true, nil
	}
	return false, false, l.catalog.UpdateDeposit(deposit)
}

// linkSubmissionToGrant trägt die Submission in der Submissions-Liste des
// Grants nach, genau einmal.
func (l *SubmissionLoader) linkSubmissionToGrant(grantURI, submissionURI string) error {
	grant, err := l.catalog.ReadGrant(grantURI)
	if err != nil {
		return err
	}
	if grant == nil {
		return fmt.Errorf("grant %s disappeared from the catalog during load", grantURI)
	}
	if slices.Contains(grant.Submissions, submissionURI) {
		return nil
	}
	grant.Submissions = append(grant.Submissions, submissionURI)
	return l.catalog.UpdateGrant(grant)
}
