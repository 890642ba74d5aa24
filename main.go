package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"nihms-bridge/catalog"
	"nihms-bridge/config"
	"nihms-bridge/models"
	"nihms-bridge/providers/entrez"
	"nihms-bridge/services"
	"nihms-bridge/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	recordsProcessedCounter prometheus.Counter
	recordsFailedCounter    prometheus.Counter
	newSubmissionsCounter   prometheus.Counter
	newPublicationsCounter  prometheus.Counter
)

func init() {
	recordsProcessedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nihms_records_processed_total",
		Help: "Total number of NIHMS export records processed.",
	})
	recordsFailedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nihms_records_failed_total",
		Help: "Total number of NIHMS export records that failed processing.",
	})
	newSubmissionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nihms_new_submissions_total",
		Help: "Total number of new submissions created in the catalog.",
	})
	newPublicationsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nihms_new_publications_total",
		Help: "Total number of new publications created in the catalog.",
	})
	prometheus.MustRegister(recordsProcessedCounter, recordsFailedCounter,
		newSubmissionsCounter, newPublicationsCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to catalog database", zap.Error(err))
	}
	logging.Info("Successfully connected to catalog database.")

	// Auto-Migration
	logging.Info("Running database auto-migration...")
	db.AutoMigrate(&models.Grant{}, &models.Publication{}, &models.Submission{},
		&models.RepositoryCopy{}, &models.Deposit{}, &models.Repository{}, &models.Journal{})

	// Seeding
	seedNihmsRepository(db, cfg, logging)

	// Setup Services
	catalogClient := catalog.NewGormClient(db, cfg.CatalogBaseURI)
	catalogService := catalog.NewService(catalogClient, logging)
	resolver := entrez.NewFetcher(cfg, logging)

	transformer := services.NewSubmissionTransformer(catalogService, resolver, nil, cfg, logging)
	loader := services.NewSubmissionLoader(catalogService, logging)
	processor := services.NewCsvProcessor(logging)

	var etlService *services.EtlService
	if cfg.ArchiveEnabled {
		s3Client, err := storage.NewS3Client(cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		etlService = services.NewEtlService(cfg, s3Client, logging, processor, transformer, loader)
	} else {
		etlService = services.NewEtlService(cfg, nil, logging, processor, transformer, loader)
	}

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "nihms-bridge"})
	})

	// Setup Routes
	setupEtlRoutes(router, etlService)
	setupPublicationRoutes(router, db, logging)
	setupSubmissionRoutes(router, db, logging)
	setupDepositRoutes(router, db, logging)
	setupGrantRoutes(router, db, logging)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled reconciliation job...")
		totals, err := etlService.Run(context.Background(), nil)
		if err != nil {
			logging.Error("Cron job failed", zap.Error(err))
		} else {
			logging.Info("Cron job completed",
				zap.Int("files", totals.Files), zap.Int("records", totals.Records))
			addTotals(totals)
		}
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func addTotals(totals services.EtlTotals) {
	recordsProcessedCounter.Add(float64(totals.Records))
	recordsFailedCounter.Add(float64(totals.Failures))
	newSubmissionsCounter.Add(float64(totals.NewSubmissions))
	newPublicationsCounter.Add(float64(totals.NewPublications))
}

func setupEtlRoutes(router *gin.Engine, etlService *services.EtlService) {
	rg := router.Group("/etl")
	rg.POST("/run", func(c *gin.Context) {
		var req struct {
			Statuses []string `json:"statuses"`
		}
		// Body ist optional; ohne Statuses werden alle Dateien verarbeitet.
		_ = c.ShouldBindJSON(&req)

		var statuses []models.NihmsStatus
		for _, s := range req.Statuses {
			status := models.NihmsStatus(s)
			if !status.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + s})
				return
			}
			statuses = append(statuses, status)
		}

		go func() {
			totals, err := etlService.Run(context.Background(), statuses)
			if err != nil {
				etlService.Logger.Error("Async reconciliation run failed", zap.Error(err))
			} else {
				addTotals(totals)
				etlService.Logger.Info("Async reconciliation run completed",
					zap.Int("files", totals.Files), zap.Int("records", totals.Records))
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Reconciliation run triggered."})
	})
}

func setupPublicationRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/publications")

	rg.GET("/", func(c *gin.Context) {
		var publications []models.Publication
		query := db.Model(&models.Publication{})
		if pmid := c.Query("pmid"); pmid != "" {
			query = query.Where("pmid = ?", pmid)
		}
		if doi := c.Query("doi"); doi != "" {
			query = query.Where("doi = ?", doi)
		}
		if err := query.Order("created_at desc").Find(&publications).Error; err != nil {
			log.Error("Database query for publications failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, publications)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id := c.Param("id")
		var publication models.Publication
		if err := db.First(&publication, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "publication not found"})
				return
			}
			log.Error("DB error fetching publication", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, publication)
	})
}

func setupSubmissionRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/submissions")

	rg.GET("/", func(c *gin.Context) {
		var submissions []models.Submission
		query := db.Model(&models.Submission{})
		if pubURI := c.Query("publication"); pubURI != "" {
			query = query.Where("publication_uri = ?", pubURI)
		}
		if submitted := c.Query("submitted"); submitted != "" {
			query = query.Where("submitted = ?", submitted == "true")
		}
		if err := query.Order("id asc").Find(&submissions).Error; err != nil {
			log.Error("Database query for submissions failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, submissions)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id := c.Param("id")
		var submission models.Submission
		if err := db.First(&submission, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
				return
			}
			log.Error("DB error fetching submission", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, submission)
	})
}

func setupDepositRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/deposits")

	rg.GET("/", func(c *gin.Context) {
		var deposits []models.Deposit
		query := db.Model(&models.Deposit{})
		if subURI := c.Query("submission"); subURI != "" {
			query = query.Where("submission_uri = ?", subURI)
		}
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if c.Query("user_action_required") == "true" {
			query = query.Where("user_action_required = ?", true)
		}
		if err := query.Order("id asc").Find(&deposits).Error; err != nil {
			log.Error("Database query for deposits failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, deposits)
	})
}

func setupGrantRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/grants")

	rg.GET("/", func(c *gin.Context) {
		var grants []models.Grant
		query := db.Model(&models.Grant{})
		if awardNumber := c.Query("award_number"); awardNumber != "" {
			query = query.Where("award_number = ?", awardNumber)
		}
		if err := query.Find(&grants).Error; err != nil {
			log.Error("Database query for grants failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, grants)
	})

	rg.POST("/", func(c *gin.Context) {
		var grant models.Grant
		if err := c.ShouldBindJSON(&grant); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := db.Create(&grant).Error; err != nil {
			log.Error("Failed to create grant", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create grant"})
			return
		}
		c.JSON(http.StatusCreated, grant)
	})
}

// seedNihmsRepository legt den NIHMS-Repository-Eintrag an, auf den alle
// Submissions und Deposits zeigen, falls er noch nicht existiert.
func seedNihmsRepository(db *gorm.DB, cfg *config.Config, logger *zap.Logger) {
	var count int64
	db.Model(&models.Repository{}).Where("uri = ?", cfg.NihmsRepositoryURI).Count(&count)
	if count > 0 {
		return
	}
	repo := models.Repository{
		URI:  cfg.NihmsRepositoryURI,
		Key:  "nihms",
		Name: "NIH Manuscript Submission System (NIHMS)",
	}
	if err := db.Create(&repo).Error; err != nil {
		logger.Warn("Failed to seed NIHMS repository entry", zap.Error(err))
	} else {
		logger.Info("NIHMS repository entry seeded.")
	}
}
