// Package entrez enthält die Logik für die Interaktion mit der
// Entrez-ESummary-API von PubMed.
package entrez

import "encoding/json"

// ESummaryResponse repräsentiert die JSON-Antwort von esummary.fcgi.
// Unter "result" liegt pro PMID ein Dokument, plus ein "uids"-Array.
type ESummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

// DocSummary repräsentiert ein einzelnes PMID-Dokument im Result.
type DocSummary struct {
	Title      string      `json:"title"`
	Volume     string      `json:"volume"`
	Issue      string      `json:"issue"`
	Issn       string      `json:"issn"`
	Essn       string      `json:"essn"`
	ArticleIDs []ArticleID `json:"articleids"`
}

// ArticleID ist ein Eintrag der articleids-Liste (z.B. doi, pmc, pubmed).
type ArticleID struct {
	IDType string `json:"idtype"`
	Value  string `json:"value"`
}
