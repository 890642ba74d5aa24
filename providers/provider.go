package providers

// PubMedRecord ist das standardisierte Ergebnis einer Metadaten-Abfrage.
type PubMedRecord struct {
	Pmid   string `json:"pmid"`
	Title  string `json:"title"`
	Doi    string `json:"doi,omitempty"`
	Issn   string `json:"issn,omitempty"`
	Essn   string `json:"essn,omitempty"`
	Volume string `json:"volume,omitempty"`
	Issue  string `json:"issue,omitempty"`
}

// MetadataResolver ist das Interface, das jeder Metadaten-Provider (z.B. Entrez)
// implementieren muss.
type MetadataResolver interface {
	// Lookup holt die bibliografischen Metadaten zu einer PMID. Ein nil-Record
	// ohne Fehler bedeutet: die Abfrage war erfolgreich, aber die PMID ist dem
	// Provider nicht bekannt. Fehler gibt es nur bei Transport-/Config-Problemen.
	Lookup(pmid string) (*PubMedRecord, error)

	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "entrez").
	Name() string
}
