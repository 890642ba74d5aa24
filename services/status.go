package services

import (
	"go.uber.org/zap"

	"nihms-bridge/models"
)

// CalcDepositStatus bestimmt den neuen Deposit-Status aus den Meilenstein-
// Daten des NIHMS-Datensatzes. Ist der im Katalog registrierte Status weiter
// als das, was NIHMS aktuell meldet, wird auf "submitted" zurückgerollt und
// eine Warnung geloggt — die Quelle ist für Fortschritt maßgeblich, der
// Katalog behält seinen Stand nur, solange die Quelle nicht widerspricht.
func CalcDepositStatus(pub *models.NihmsPublication, curr models.DepositStatus, log *zap.Logger) models.DepositStatus {
	if pub.NihmsStatus == models.NihmsStatusCompliant {
		return models.DepositStatusAccepted
	}

	if pub.IsTaggingComplete() || pub.HasInitialApproval() {
		return models.DepositStatusInProgress
	}

	if pub.IsFileDeposited() {
		return models.DepositStatusReceived
	}

	if curr.AtOrBeyond(models.DepositStatusReceived) {
		log.Warn("Deposit status in the catalog was at a later stage than the current NIHMS status implies, rolling back to submitted",
			zap.String("pmid", pub.Pmid),
			zap.String("previous_status", string(curr)))
		statusRollbackCounter.Inc()
		return models.DepositStatusSubmitted
	}

	return curr
}

// CalcRepoCopyStatus bestimmt den neuen Status einer RepositoryCopy. Gleiche
// Drift-Regel wie beim Deposit; da diese Domäne keinen Platzhalter vor
// "accepted" kennt, ist der Rückroll-Boden der unbekannte Status.
func CalcRepoCopyStatus(pub *models.NihmsPublication, curr models.CopyStatus, log *zap.Logger) models.CopyStatus {
	if pub.NihmsStatus == models.NihmsStatusCompliant {
		return models.CopyStatusComplete
	}

	if pub.IsTaggingComplete() || pub.HasInitialApproval() {
		return models.CopyStatusInProgress
	}

	if pub.IsFileDeposited() {
		return models.CopyStatusAccepted
	}

	if curr != models.CopyStatusUnknown {
		log.Warn("Repository copy status in the catalog was at a later stage than the current NIHMS status implies, rolling back",
			zap.String("pmid", pub.Pmid),
			zap.String("previous_status", string(curr)))
		statusRollbackCounter.Inc()
		return models.CopyStatusUnknown
	}

	return curr
}

// DepositUserActionRequired meldet, ob der PI eingreifen muss: ein Deposit
// wurde begonnen (Datei hochgeladen), der Artikel erscheint aber in der
// Non-Compliant-Liste.
func DepositUserActionRequired(pub *models.NihmsPublication) bool {
	return pub.IsFileDeposited() && pub.NihmsStatus == models.NihmsStatusNonCompliant
}

// NeedNihmsDeposit meldet, ob der Datensatz einen NIHMS-Deposit rechtfertigt:
// es gibt bereits eine externe ID, oder der Vorgang läuft bzw. ist abgeschlossen.
func NeedNihmsDeposit(pub *models.NihmsPublication) bool {
	if pub.PmcID != "" || pub.NihmsID != "" {
		return true
	}
	return pub.NihmsStatus == models.NihmsStatusCompliant || pub.NihmsStatus == models.NihmsStatusInProcess
}

// PickDepositForRepository sucht in der Deposit-Liste einer Submission den
// Eintrag für ein bestimmtes Repository.
func PickDepositForRepository(deposits []*models.Deposit, repositoryURI string) *models.Deposit {
	for _, deposit := range deposits {
		if deposit != nil && deposit.RepositoryURI == repositoryURI {
			return deposit
		}
	}
	return nil
}

// StatusAggregator leitet den Gesamtstatus einer Submission aus ihren
// Deposits ab. Die Regel selbst ist ein externer Kollaborateur; missingDeposits
// wird von dieser Pipeline immer als false übergeben.
type StatusAggregator interface {
	Aggregate(curr models.AggregatedDepositStatus, deposits []*models.Deposit, missingDeposits bool) models.AggregatedDepositStatus
}

// KeepCurrentAggregator ist die Default-Regel: der bestehende Gesamtstatus
// bleibt unverändert.
type KeepCurrentAggregator struct{}

// Aggregate gibt den bestehenden Status unverändert zurück.
func (KeepCurrentAggregator) Aggregate(curr models.AggregatedDepositStatus, _ []*models.Deposit, _ bool) models.AggregatedDepositStatus {
	return curr
}
