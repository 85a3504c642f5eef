package server

import (
	"context"
	"net/http"
	"time"

	"github.com/burton0621/barix-site-sub000/internal/account"
	accountdomain "github.com/burton0621/barix-site-sub000/internal/account/domain"
	"github.com/burton0621/barix-site-sub000/internal/clientimport"
	clientimportdomain "github.com/burton0621/barix-site-sub000/internal/clientimport/domain"
	"github.com/burton0621/barix-site-sub000/internal/clock"
	"github.com/burton0621/barix-site-sub000/internal/config"
	"github.com/burton0621/barix-site-sub000/internal/customer"
	customerdomain "github.com/burton0621/barix-site-sub000/internal/customer/domain"
	"github.com/burton0621/barix-site-sub000/internal/document"
	documentdomain "github.com/burton0621/barix-site-sub000/internal/document/domain"
	"github.com/burton0621/barix-site-sub000/internal/observability"
	obsmiddleware "github.com/burton0621/barix-site-sub000/internal/observability/logger"
	obsmetrics "github.com/burton0621/barix-site-sub000/internal/observability/metrics"
	obstracing "github.com/burton0621/barix-site-sub000/internal/observability/tracing"
	"github.com/burton0621/barix-site-sub000/internal/providers"
	"github.com/burton0621/barix-site-sub000/internal/ratelimit"
	"github.com/burton0621/barix-site-sub000/internal/reminder"
	reminderdomain "github.com/burton0621/barix-site-sub000/internal/reminder/domain"
	reminderservice "github.com/burton0621/barix-site-sub000/internal/reminder/service"
	"github.com/burton0621/barix-site-sub000/pkg/calendar"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	providers.Module,
	ratelimit.Module,
	account.Module,
	customer.Module,
	document.Module,
	clientimport.Module,
	reminder.Module,
	fx.Provide(provideReminderRunner),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// ReminderRunner runs the reminder sweep for one calendar day.
type ReminderRunner interface {
	Run(ctx context.Context, today calendar.Date) (reminderdomain.Report, error)
}

func provideReminderRunner(d *reminderservice.Dispatcher) ReminderRunner {
	return d
}

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server started", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	clock       clock.Clock
	customerSvc customerdomain.Service
	importSvc   clientimportdomain.Service
	documentSvc documentdomain.Service
	settingsSvc accountdomain.Service
	reminders   ReminderRunner
	limiter     *ratelimit.Limiter
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	Clock       clock.Clock
	CustomerSvc customerdomain.Service
	ImportSvc   clientimportdomain.Service
	DocumentSvc documentdomain.Service
	SettingsSvc accountdomain.Service
	Reminders   ReminderRunner
	Limiter     *ratelimit.Limiter  `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		clock:       p.Clock,
		customerSvc: p.CustomerSvc,
		importSvc:   p.ImportSvc,
		documentSvc: p.DocumentSvc,
		settingsSvc: p.SettingsSvc,
		reminders:   p.Reminders,
		limiter:     p.Limiter,
		obsMetrics:  p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerPublicRoutes()
	svc.registerCronRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(OrgContext())

	// -------- Customers --------
	api.GET("/customers", s.ListCustomers)
	api.POST("/customers", s.CreateCustomer)
	api.POST("/customers/import/preview", s.PreviewClientImport)
	api.POST("/customers/import/confirm", s.ConfirmClientImport)
	api.GET("/customers/:id", s.GetCustomerByID)
	api.PATCH("/customers/:id", s.UpdateCustomer)

	// -------- Documents --------
	api.GET("/documents", s.ListDocuments)
	api.POST("/documents", s.CreateDocument)
	api.POST("/documents/preview-totals", s.PreviewDocumentTotals)
	api.GET("/documents/:id", s.GetDocumentByID)
	api.PUT("/documents/:id", s.UpdateDocument)
	api.POST("/documents/:id/send", s.SendDocument)
	api.POST("/documents/:id/pay", s.MarkDocumentPaid)
	api.POST("/documents/:id/void", s.VoidDocument)
	api.POST("/documents/:id/convert", s.ConvertDocument)
	api.GET("/documents/:id/pdf", s.DownloadDocumentPDF)

	// -------- Settings --------
	api.GET("/settings", s.GetSettings)
	api.PUT("/settings", s.UpdateSettings)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public", s.RateLimit(ratelimit.ScopePublic))

	public.GET("/documents/:token", s.GetPublicDocument)
	public.POST("/documents/:token/accept", s.AcceptPublicEstimate)
}

func (s *Server) registerCronRoutes() {
	cron := s.engine.Group("/cron", s.RateLimit(ratelimit.ScopeCron), s.CronAuth())

	cron.POST("/reminders", s.RunReminders)
}
