package models

// SubmissionDTO bündelt die aus einem NIHMS-Datensatz aufgebauten bzw.
// aktualisierten Entitäten bis zum Schreiben in den Katalog. Entitäten ohne
// URI sind noch nicht angelegt; der Loader vergibt die Referenzen in der
// richtigen Reihenfolge.
type SubmissionDTO struct {
	GrantURI       string
	Publication    *Publication
	Submission     *Submission
	RepositoryCopy *RepositoryCopy
	Deposit        *Deposit
}
