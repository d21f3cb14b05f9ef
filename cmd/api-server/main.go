package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/uni-registration-api/api/swagger"
	"github.com/noah-isme/uni-registration-api/internal/handler"
	"github.com/noah-isme/uni-registration-api/internal/middleware"
	"github.com/noah-isme/uni-registration-api/internal/models"
	"github.com/noah-isme/uni-registration-api/internal/repository"
	"github.com/noah-isme/uni-registration-api/internal/service"
	"github.com/noah-isme/uni-registration-api/pkg/cache"
	"github.com/noah-isme/uni-registration-api/pkg/config"
	"github.com/noah-isme/uni-registration-api/pkg/database"
	"github.com/noah-isme/uni-registration-api/pkg/export"
	"github.com/noah-isme/uni-registration-api/pkg/gateway"
	"github.com/noah-isme/uni-registration-api/pkg/jobs"
	"github.com/noah-isme/uni-registration-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-registration-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-registration-api/pkg/middleware/requestid"
	"github.com/noah-isme/uni-registration-api/pkg/storage"
)

// @title University Registration API
// @version 1.0.0
// @description Course registration and academic administration backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, phase cache disabled", "error", err)
		redisClient = nil
	}

	documentStore, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}
	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}

	validate := validator.New()

	// Repositories.
	semesterRepo := repository.NewSemesterRepository(db)
	phaseRepo := repository.NewPhaseRepository(db)
	windowRepo := repository.NewWindowRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	declarationRepo := repository.NewDeclarationRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	tuitionRepo := repository.NewTuitionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	phaseSvc := service.NewPhaseService(phaseRepo, cacheRepo, metricsSvc, validate, logr, service.PhaseServiceConfig{
		Grace:    cfg.Registration.PhaseGrace,
		Duration: cfg.Registration.PhaseDuration,
		CacheTTL: cfg.Registration.PhaseCacheTTL,
	})
	eligibilitySvc := service.NewEligibilityService(studentRepo, semesterRepo, phaseSvc, windowRepo, logr)
	enrollmentSvc := service.NewEnrollmentService(declarationRepo, courseRepo, eligibilitySvc, semesterRepo, historyRepo, validate, logr)
	registrationSvc := service.NewRegistrationService(registrationRepo, courseRepo, eligibilitySvc, historyRepo, historyRepo, metricsSvc, validate, logr)
	invoiceExporter := export.NewPDFExporter()
	tuitionSvc := service.NewTuitionService(tuitionRepo, registrationRepo, studentRepo, invoiceExporter, logr)
	paymentGateway := gateway.NewClient(cfg.Payment)
	paymentSvc := service.NewPaymentService(paymentRepo, tuitionRepo, paymentGateway, metricsSvc, cfg.Payment.Provider, logr)
	semesterSvc := service.NewSemesterService(semesterRepo, phaseRepo, validate, logr)
	windowSvc := service.NewWindowService(windowRepo, validate, logr)
	authSvc := service.NewAuthService(userRepo, studentRepo, cfg.JWT, validate, logr)
	catalogSvc := service.NewCatalogService(courseRepo, studentRepo, logr)
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)
	documentSvc := service.NewDocumentService(documentRepo, documentStore, signer, cfg.Documents, logr)
	exportSvc := service.NewExportService(registrationRepo, courseRepo, exportStore, export.NewCSVExporter(), jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
	}, logr)

	exportCtx, cancelExports := context.WithCancel(context.Background())
	defer cancelExports()
	exportSvc.Start(exportCtx)
	defer exportSvc.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	phaseHandler := handler.NewPhaseHandler(phaseSvc)
	windowHandler := handler.NewWindowHandler(windowSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc)
	tuitionHandler := handler.NewTuitionHandler(tuitionSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, logr)
	semesterHandler := handler.NewSemesterHandler(semesterSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", middleware.JWT(authSvc), authHandler.Me)

	// Gateway server-to-server callback; authenticated by HMAC signature.
	api.GET("/payment/ipn", paymentHandler.IPN)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleLecturer)
	selfOrStaff := middleware.RBAC(string(models.RoleAdmin), string(models.RoleLecturer), "SELF")

	// Semesters and academic calendar.
	authed.GET("/semesters", semesterHandler.List)
	authed.GET("/semesters/current", semesterHandler.Current)
	authed.GET("/semesters/:semesterId", semesterHandler.Get)
	authed.POST("/semesters", adminOnly, semesterHandler.Create)
	authed.PUT("/semesters/:semesterId", adminOnly, semesterHandler.Update)
	authed.PUT("/semesters/:semesterId/current", adminOnly, middleware.Audit(userRepo, models.AuditActionSemesterCurrent, "semesters"), semesterHandler.SetCurrent)
	authed.DELETE("/semesters/:semesterId", adminOnly, semesterHandler.Delete)
	authed.GET("/academic-years", semesterHandler.AcademicYears)

	// Phases.
	authed.GET("/semesters/:semesterId/phases", phaseHandler.List)
	authed.GET("/semesters/:semesterId/phases/current", phaseHandler.Current)
	authed.PUT("/semesters/:semesterId/phases/active", adminOnly, middleware.Audit(userRepo, models.AuditActionPhaseTransition, "registration_phases"), phaseHandler.SetActive)

	// Registration windows.
	authed.GET("/semesters/:semesterId/windows", windowHandler.List)
	authed.POST("/semesters/:semesterId/windows", adminOnly, middleware.Audit(userRepo, models.AuditActionWindowCreate, "registration_windows"), windowHandler.Create)
	authed.DELETE("/windows/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionWindowDelete, "registration_windows"), windowHandler.Delete)

	// Catalog.
	authed.GET("/courses/:courseId", catalogHandler.GetCourse)
	authed.GET("/sections", catalogHandler.ListSections)
	authed.GET("/sections/:sectionId", catalogHandler.GetSection)
	authed.GET("/students", staff, catalogHandler.ListStudents)
	authed.GET("/students/:studentId", selfOrStaff, catalogHandler.GetStudent)

	// Enrollment declarations.
	authed.GET("/enrollment/check", enrollmentHandler.Check)
	authed.POST("/enrollment", enrollmentHandler.Declare)
	authed.DELETE("/enrollment", enrollmentHandler.Cancel)
	authed.GET("/enrollment/:studentId/:semesterId", selfOrStaff, enrollmentHandler.ListMine)

	// Section registration.
	authed.GET("/registration/check", registrationHandler.Check)
	authed.POST("/registration", registrationHandler.Register)
	authed.DELETE("/registration/:id", registrationHandler.Drop)
	authed.GET("/registration/:studentId/:semesterId", selfOrStaff, registrationHandler.ListMine)
	authed.GET("/registration/:studentId/:semesterId/history", selfOrStaff, registrationHandler.History)

	// Tuition.
	authed.GET("/tuition/:studentId/:semesterId", selfOrStaff, tuitionHandler.Get)
	authed.POST("/tuition/:studentId/:semesterId/compute", staff, middleware.Audit(userRepo, models.AuditActionTuitionCompute, "tuition_records"), tuitionHandler.Compute)
	authed.GET("/tuition/:studentId/:semesterId/invoice", selfOrStaff, tuitionHandler.Invoice)

	// Payment.
	authed.POST("/payment", paymentHandler.Initiate)
	authed.GET("/payment/:orderId", paymentHandler.Status)

	// Course documents.
	authed.POST("/courses/:courseId/documents", staff, middleware.Audit(userRepo, models.AuditActionDocumentUpload, "course_documents"), documentHandler.Upload)
	authed.GET("/courses/:courseId/documents", documentHandler.List)
	authed.GET("/documents/:id/link", documentHandler.SignedLink)
	api.GET("/documents/download", documentHandler.Download)

	// Roster exports.
	authed.POST("/sections/:sectionId/roster-export", staff, exportHandler.EnqueueRoster)
	authed.GET("/exports/:id", staff, exportHandler.Status)
	authed.GET("/exports/:id/download", staff, exportHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
