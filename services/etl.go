package services

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"nihms-bridge/config"
	"nihms-bridge/models"
	"nihms-bridge/storage"
)

// doneSuffix markiert eine vollständig verarbeitete Export-Datei. Dateien mit
// diesem Suffix werden beim nächsten Lauf übersprungen.
const doneSuffix = ".done"

// EtlTotals fasst einen Pipeline-Lauf zusammen.
type EtlTotals struct {
	Files           int
	Records         int
	Failures        int
	NewPublications int
	NewSubmissions  int
	NewRepoCopies   int
	NewDeposits     int
}

// EtlService kümmert sich um die Orchestrierung des gesamten
// Reconciliation-Laufs: CSV-Dateien finden, Zeilen transformieren und laden,
// verarbeitete Dateien archivieren und markieren.
type EtlService struct {
	Config      *config.Config
	S3Client    *s3.Client
	Logger      *zap.Logger
	Processor   *CsvProcessor
	Transformer *SubmissionTransformer
	Loader      *SubmissionLoader
}

// NewEtlService erstellt eine neue Instanz des EtlService. s3Client darf nil
// sein, wenn die Archivierung deaktiviert ist.
func NewEtlService(cfg *config.Config, s3Client *s3.Client, logger *zap.Logger,
	processor *CsvProcessor, transformer *SubmissionTransformer, loader *SubmissionLoader) *EtlService {
	return &EtlService{
		Config:      cfg,
		S3Client:    s3Client,
		Logger:      logger,
		Processor:   processor,
		Transformer: transformer,
		Loader:      loader,
	}
}

// Run verarbeitet alle noch nicht markierten CSV-Exporte im Download-
// Verzeichnis, deren Status-Präfix in statuses enthalten ist. Eine leere
// Status-Liste heißt: alle Status verarbeiten.
func (e *EtlService) Run(ctx context.Context, statuses []models.NihmsStatus) (EtlTotals, error) {
	var totals EtlTotals

	files, err := e.scanDownloadDir(statuses)
	if err != nil {
		return totals, err
	}
	if len(files) == 0 {
		e.Logger.Info("No new export files found", zap.String("dir", e.Config.DownloadDir))
		return totals, nil
	}

	for _, path := range files {
		select {
		case <-ctx.Done():
			return totals, ctx.Err()
		default:
		}

		fileTotals, err := e.processFile(path)
		if err != nil {
			e.Logger.Error("Datei konnte nicht verarbeitet werden, fahre mit der nächsten fort",
				zap.String("file", filepath.Base(path)), zap.Error(err))
			continue
		}

		totals.Files++
		totals.Records += fileTotals.Records
		totals.Failures += fileTotals.Failures
		totals.NewPublications += fileTotals.NewPublications
		totals.NewSubmissions += fileTotals.NewSubmissions
		totals.NewRepoCopies += fileTotals.NewRepoCopies
		totals.NewDeposits += fileTotals.NewDeposits

		if err := e.finishFile(ctx, path); err != nil {
			e.Logger.Error("Datei konnte nicht abgeschlossen werden",
				zap.String("file", filepath.Base(path)), zap.Error(err))
		}
	}

	e.Logger.Info("Reconciliation run finished",
		zap.Int("files", totals.Files),
		zap.Int("records", totals.Records),
		zap.Int("failures", totals.Failures),
		zap.Int("new_submissions", totals.NewSubmissions))
	return totals, nil
}

// scanDownloadDir sammelt alle unverarbeiteten CSV-Dateien mit passendem
// Status-Präfix, in stabiler Reihenfolge.
func (e *EtlService) scanDownloadDir(statuses []models.NihmsStatus) ([]string, error) {
	entries, err := os.ReadDir(e.Config.DownloadDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".csv") {
			continue
		}
		if strings.HasSuffix(name, doneSuffix) {
			continue
		}
		status, err := StatusFromFilename(name)
		if err != nil {
			e.Logger.Warn("Skipping file without a status prefix", zap.String("file", name))
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, status) {
			continue
		}
		files = append(files, filepath.Join(e.Config.DownloadDir, name))
	}
	slices.Sort(files)
	return files, nil
}

// processFile schickt jede Zeile der Datei durch Transform und Load. Fehler
// einzelner Datensätze werden vom Prozessor geloggt und gezählt.
func (e *EtlService) processFile(path string) (EtlTotals, error) {
	var totals EtlTotals
	e.Logger.Info("Processing export file", zap.String("file", filepath.Base(path)))

	tally, err := e.Processor.ProcessFile(path, func(pub *models.NihmsPublication) error {
		dto, err := e.Transformer.Transform(pub)
		if err != nil {
			return err
		}
		outcome, err := e.Loader.Load(dto)
		if err != nil {
			return err
		}
		if outcome.CreatedPublication {
			totals.NewPublications++
		}
		if outcome.CreatedSubmission {
			totals.NewSubmissions++
		}
		if outcome.CreatedRepositoryCopy {
			totals.NewRepoCopies++
		}
		if outcome.CreatedDeposit {
			totals.NewDeposits++
		}
		return nil
	})
	if err != nil {
		return totals, err
	}

	totals.Records = tally.RecCount
	totals.Failures = tally.FailCount
	return totals, nil
}

// finishFile archiviert die verarbeitete Datei (falls konfiguriert) und
// markiert sie mit dem done-Suffix, damit sie nicht erneut gelesen wird.
func (e *EtlService) finishFile(ctx context.Context, path string) error {
	if e.Config.ArchiveEnabled && e.S3Client != nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		key := "nihms-exports/" + filepath.Base(path)
		link, err := storage.UploadFile(e.S3Client, e.Config.ArchiveS3Bucket, key, data, e.Config)
		if err != nil {
			e.Logger.Error("S3-Upload fehlgeschlagen, Datei wird trotzdem markiert", zap.Error(err))
		} else {
			e.Logger.Info("Export archiviert", zap.String("s3_link", link))
		}
	}

	return os.Rename(path, path+doneSuffix)
}
