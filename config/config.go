package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4243"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Basis-URI, unter der der Katalog seine Entitäts-URIs vergibt.
	CatalogBaseURI string `envconfig:"CATALOG_BASE_URI" default:"https://pass.local/fcrepo/rest"`

	// URI des NIHMS-Repository-Eintrags im Katalog. Der Eintrag wird beim
	// Start angelegt, falls er noch nicht existiert.
	NihmsRepositoryURI string `envconfig:"NIHMS_REPOSITORY_URI" default:"https://pass.local/fcrepo/rest/repositories/nihms"`

	// Template für die accessUrl eines PMC-Artikels, erhält die PMCID per
	// Sprintf. Die eingesetzte ID wird vorher auf die "PMC"-Präfix-Form
	// gebracht, egal ob der Export sie mit oder ohne Präfix liefert.
	PmcURLTemplate string `envconfig:"PMC_URL_TEMPLATE" default:"https://www.ncbi.nlm.nih.gov/pmc/articles/%s/"`

	EntrezBaseURL string `envconfig:"ENTREZ_BASE_URL" default:"https://eutils.ncbi.nlm.nih.gov/entrez/eutils"`
	EntrezAPIKey  string `envconfig:"ENTREZ_API_KEY"`
	EntrezTool    string `envconfig:"ENTREZ_TOOL" default:"nihms-bridge"`

	// Verzeichnis, in dem die heruntergeladenen NIHMS-CSV-Exporte liegen.
	DownloadDir string `envconfig:"NIHMS_DOWNLOAD_DIR" default:"./downloads"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 2 * * *"`

	// Archivierung verarbeiteter CSV-Dateien nach S3 (optional).
	ArchiveEnabled  bool   `envconfig:"ARCHIVE_ENABLED" default:"false"`
	ArchiveS3Key    string `envconfig:"ARCHIVE_S3_KEY"`
	ArchiveS3Secret string `envconfig:"ARCHIVE_S3_SECRET"`
	ArchiveS3URL    string `envconfig:"ARCHIVE_S3_URL"`
	ArchiveS3Region string `envconfig:"ARCHIVE_S3_REGION"`
	ArchiveS3Bucket string `envconfig:"ARCHIVE_S3_BUCKET"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
