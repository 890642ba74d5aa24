package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"nihms-bridge/models"
)

// expectedHeaders sind die Spalten des NIHMS-Exports, die diese Pipeline
// liest; die Position im CSV ist verbindlich.
var expectedHeaders = map[int]string{
	0: "PMID",
	3: "Grant number",
	4: "NIHMSID",
	5: "PMCID",
	6: "File Deposited",
	7: "Initial Approval",
	8: "Tagging Complete",
	9: "Final Approval",
}

// ProcessorTally zählt die verarbeiteten und fehlgeschlagenen Zeilen einer Datei.
type ProcessorTally struct {
	RecCount  int
	FailCount int
}

// RowConsumer verarbeitet einen validierten Datensatz. Fehler werden geloggt
// und gezählt, die Verarbeitung der Datei läuft weiter.
type RowConsumer func(pub *models.NihmsPublication) error

// CsvProcessor liest einen NIHMS-Compliance-Export zeilenweise ein. Der
// Compliance-Status steckt nicht in den Daten, sondern im Dateinamen-Präfix.
type CsvProcessor struct {
	log *zap.Logger
}

// NewCsvProcessor erstellt den CSV-Prozessor.
func NewCsvProcessor(log *zap.Logger) *CsvProcessor {
	return &CsvProcessor{log: log}
}

// StatusFromFilename leitet den Compliance-Status aus dem Dateinamen-Präfix
// ab (z.B. "noncompliant_2026-08.csv").
func StatusFromFilename(path string) (models.NihmsStatus, error) {
	name := strings.ToLower(filepath.Base(path))
	for _, status := range models.NihmsStatuses() {
		if strings.HasPrefix(name, string(status)+"_") {
			return status, nil
		}
	}
	return "", fmt.Errorf("filename %q does not start with a known status prefix", filepath.Base(path))
}

// ProcessFile öffnet die Datei, prüft die Kopfzeile und reicht jede Zeile an
// den Consumer. Eine fehlerhafte Zeile wird geloggt und gezählt, bricht die
// Datei aber nicht ab.
func (p *CsvProcessor) ProcessFile(path string, consume RowConsumer) (ProcessorTally, error) {
	var tally ProcessorTally

	status, err := StatusFromFilename(path)
	if err != nil {
		return tally, err
	}

	f, err := os.Open(path)
	if err != nil {
		return tally, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	log := p.log.With(zap.String("file", filepath.Base(path)))

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return tally, fmt.Errorf("could not read header of %s: %w", path, err)
	}
	if err := p.validateHeader(header, log); err != nil {
		return tally, err
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			tally.FailCount++
			log.Error("Zeile konnte nicht gelesen werden, überspringe sie", zap.Error(err))
			continue
		}

		tally.RecCount++
		pub, err := rowToPublication(status, row)
		if err != nil {
			tally.FailCount++
			log.Error("Zeile ist ungültig, überspringe sie",
				zap.Int("row", tally.RecCount), zap.Error(err))
			continue
		}
		if err := consume(pub); err != nil {
			tally.FailCount++
			log.Error("Datensatz konnte nicht verarbeitet werden",
				zap.String("pmid", pub.Pmid), zap.Error(err))
		}
	}

	log.Info("File processed",
		zap.Int("records", tally.RecCount), zap.Int("failures", tally.FailCount))
	return tally, nil
}

// validateHeader prüft alle erwarteten Spaltenpositionen und loggt jede
// Abweichung, bevor abgebrochen wird — so sieht der Betreiber das vollständige
// Delta zum erwarteten Format auf einen Blick.
func (p *CsvProcessor) validateHeader(header []string, log *zap.Logger) error {
	mismatches := 0
	for idx, want := range expectedHeaders {
		got := ""
		if idx < len(header) {
			got = strings.TrimSpace(header[idx])
		}
		if !strings.EqualFold(got, want) {
			mismatches++
			log.Error("Unexpected column header",
				zap.Int("position", idx), zap.String("expected", want), zap.String("found", got))
		}
	}
	if mismatches > 0 {
		return fmt.Errorf("csv header does not match the expected NIHMS export format (%d mismatched columns)", mismatches)
	}
	return nil
}

func rowToPublication(status models.NihmsStatus, row []string) (*models.NihmsPublication, error) {
	field := func(idx int) string {
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}
	return models.NewNihmsPublication(status,
		field(0), field(3), field(4), field(5),
		field(6), field(7), field(8), field(9))
}
