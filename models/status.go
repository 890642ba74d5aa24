package models

// NihmsStatus ist der dreiwertige Compliance-Status aus dem NIHMS-Export.
// Der Status ergibt sich aus dem Dateinamen-Präfix der CSV-Datei.
type NihmsStatus string

const (
	NihmsStatusCompliant    NihmsStatus = "compliant"
	NihmsStatusNonCompliant NihmsStatus = "noncompliant"
	NihmsStatusInProcess    NihmsStatus = "inprocess"
)

// NihmsStatuses listet alle gültigen Werte, z.B. für die Dateinamen-Erkennung.
func NihmsStatuses() []NihmsStatus {
	return []NihmsStatus{NihmsStatusCompliant, NihmsStatusNonCompliant, NihmsStatusInProcess}
}

// Valid prüft, ob der Status einer der drei bekannten Werte ist.
func (s NihmsStatus) Valid() bool {
	switch s {
	case NihmsStatusCompliant, NihmsStatusNonCompliant, NihmsStatusInProcess:
		return true
	}
	return false
}

// DepositStatus ist der Lebenszyklus-Status eines Deposits. Die Werte sind
// eine geschlossene Aufzählung mit expliziter Reihenfolge, damit der
// Status-Reconciler "Katalog ist weiter als die Quelle" erkennen kann.
type DepositStatus string

const (
	DepositStatusNone          DepositStatus = ""
	DepositStatusInPreparation DepositStatus = "in-preparation"
	DepositStatusReadyToSubmit DepositStatus = "ready-to-submit"
	DepositStatusSubmitted     DepositStatus = "submitted"
	DepositStatusReceived      DepositStatus = "received"
	DepositStatusInProgress    DepositStatus = "in-progress"
	DepositStatusAccepted      DepositStatus = "accepted"
)

var depositStatusRank = map[DepositStatus]int{
	DepositStatusNone:          0,
	DepositStatusInPreparation: 1,
	DepositStatusReadyToSubmit: 2,
	DepositStatusSubmitted:     3,
	DepositStatusReceived:      4,
	DepositStatusInProgress:    5,
	DepositStatusAccepted:      6,
}

// AtOrBeyond meldet, ob s im Lebenszyklus mindestens so weit ist wie other.
func (s DepositStatus) AtOrBeyond(other DepositStatus) bool {
	return depositStatusRank[s] >= depositStatusRank[other]
}

// CopyStatus ist der Lebenszyklus-Status einer RepositoryCopy. Der leere Wert
// steht für "unbekannt" und ist zugleich der Boden, auf den bei Drift
// zurückgerollt wird (diese Domäne kennt keinen Platzhalter vor "accepted").
type CopyStatus string

const (
	CopyStatusUnknown    CopyStatus = ""
	CopyStatusAccepted   CopyStatus = "accepted"
	CopyStatusInProgress CopyStatus = "in-progress"
	CopyStatusComplete   CopyStatus = "complete"
)

// Source kennzeichnet, woher eine Submission stammt.
type Source string

const (
	SourcePass  Source = "pass"
	SourceOther Source = "other"
)

// AggregatedDepositStatus ist der aus allen Deposits einer Submission
// abgeleitete Gesamtstatus. Die Ableitungsregel ist ein externer Kollaborateur.
type AggregatedDepositStatus string

const (
	AggregatedStatusNotStarted AggregatedDepositStatus = "not-started"
	AggregatedStatusInProgress AggregatedDepositStatus = "in-progress"
	AggregatedStatusAccepted   AggregatedDepositStatus = "accepted"
)
