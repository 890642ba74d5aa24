package entrez

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"nihms-bridge/config"
	"nihms-bridge/providers"
)

const doiPrefix = "https://doi.org/"

var httpClient = &http.Client{Timeout: 60 * time.Second}

// Fetcher ist eine Struktur, die die Logik zur Interaktion mit Entrez kapselt.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher erstellt eine neue Instanz des Entrez-Fetchers.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "entrez"
}

// Lookup holt die ESummary-Metadaten für eine einzelne PMID. Ein nil-Record
// ohne Fehler heißt: Entrez kennt die PMID nicht; der Aufrufer fährt ohne
// Metadaten fort. Transportfehler brechen den Datensatz ab.
func (f *Fetcher) Lookup(pmid string) (*providers.PubMedRecord, error) {
	log := f.Logger.With(zap.String("pmid", pmid))

	summaryURL := f.buildESummaryURL(pmid)
	log.Debug("Rufe ESummary-URL auf", zap.String("url", summaryURL))

	resp, err := httpClient.Get(summaryURL)
	if err != nil {
		return nil, fmt.Errorf("fehler bei der Entrez-Abfrage für PMID %s: %w", pmid, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("esummary failed for pmid %s: status %d", pmid, resp.StatusCode)
	}

	var summary ESummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("fehler beim Parsen der ESummary-Antwort für PMID %s: %w", pmid, err)
	}

	raw, ok := summary.Result[pmid]
	if !ok {
		log.Info("Entrez kennt die PMID nicht, fahre ohne Metadaten fort.")
		return nil, nil
	}

	var doc DocSummary
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("fehler beim Parsen des ESummary-Dokuments für PMID %s: %w", pmid, err)
	}

	return mapDocToRecord(pmid, &doc), nil
}

// buildESummaryURL baut die URL für eine ESummary-Anfrage.
func (f *Fetcher) buildESummaryURL(pmid string) string {
	base := fmt.Sprintf("%s/esummary.fcgi?db=pubmed&retmode=json&rettype=abstract&id=%s&tool=%s",
		f.Config.EntrezBaseURL, url.QueryEscape(pmid), url.QueryEscape(f.Config.EntrezTool))
	if f.Config.EntrezAPIKey != "" {
		base += "&api_key=" + f.Config.EntrezAPIKey
	}
	return base
}

// mapDocToRecord wandelt ein ESummary-Dokument in unser Record-Modell um.
func mapDocToRecord(pmid string, doc *DocSummary) *providers.PubMedRecord {
	rec := &providers.PubMedRecord{
		Pmid:   pmid,
		Title:  doc.Title,
		Volume: doc.Volume,
		Issue:  doc.Issue,
		Issn:   doc.Issn,
		Essn:   doc.Essn,
	}

	for _, id := range doc.ArticleIDs {
		if id.IDType == "doi" {
			rec.Doi = normalizeDoi(id.Value)
		}
	}
	return rec
}

// normalizeDoi prüft eine DOI auf Plausibilität ("10."-Anteil) und stellt
// sicher, dass sie als https://doi.org/-URL vorliegt.
func normalizeDoi(doi string) string {
	doi = strings.TrimSpace(doi)
	if doi == "" || !strings.Contains(doi, "10.") {
		return ""
	}
	if strings.HasPrefix(doi, doiPrefix) {
		return doi
	}
	return doiPrefix + doi
}
