package server

import (
	"context"
	"net/http"
	"time"

	"github.com/constructoai/backoffice/internal/company"
	"github.com/constructoai/backoffice/internal/config"
	obsmiddleware "github.com/constructoai/backoffice/internal/observability/logger"
	"github.com/constructoai/backoffice/internal/purchaseorder"
	porender "github.com/constructoai/backoffice/internal/purchaseorder/render"
	"github.com/constructoai/backoffice/internal/submission/aggregate"
	"github.com/constructoai/backoffice/internal/submission/repair"
	"github.com/constructoai/backoffice/internal/submission/resolver"
	"github.com/constructoai/backoffice/internal/submission/service"
	"github.com/constructoai/backoffice/internal/submission/tokenguard"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(porender.NewRenderer),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: cfg.Environment != "production",
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config) *gin.Engine {
	return NewEngine(cfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
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
	engine *gin.Engine
	cfg    config.Config

	submissionSvc *service.Service
	resolverSvc   *resolver.Service
	aggregateSvc  *aggregate.Service
	repairSvc     *repair.Service
	tokenguardSvc *tokenguard.Service

	purchaseOrderSvc *purchaseorder.Service
	poRenderer       *porender.Renderer
	companyStore     *company.Store
}

type ServerParams struct {
	fx.In

	Gin *gin.Engine
	Cfg config.Config

	SubmissionSvc *service.Service
	ResolverSvc   *resolver.Service
	AggregateSvc  *aggregate.Service
	RepairSvc     *repair.Service
	TokenguardSvc *tokenguard.Service

	PurchaseOrderSvc *purchaseorder.Service
	PORenderer       *porender.Renderer
	CompanyStore     *company.Store
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:           p.Gin,
		cfg:              p.Cfg,
		submissionSvc:    p.SubmissionSvc,
		resolverSvc:      p.ResolverSvc,
		aggregateSvc:     p.AggregateSvc,
		repairSvc:        p.RepairSvc,
		tokenguardSvc:    p.TokenguardSvc,
		purchaseOrderSvc: p.PurchaseOrderSvc,
		poRenderer:       p.PORenderer,
		companyStore:     p.CompanyStore,
	}

	svc.registerPublicRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerPublicRoutes mounts the token-capability surface. The token in the
// URL is the only credential; there is no session or login.
func (s *Server) registerPublicRoutes() {
	pub := s.engine.Group("/s")

	pub.GET("/:token", s.GetSubmissionByToken)
	pub.GET("/:token/file", s.GetSubmissionFile)
	pub.POST("/:token/decision", s.PostClientDecision)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	// -------- Submissions --------
	admin.GET("/submissions", s.ListSubmissions)
	admin.POST("/submissions", s.CreateSubmission)
	admin.POST("/submissions/upload", s.UploadSubmission)
	admin.DELETE("/submissions/:ref", s.DeleteSubmission)
	admin.PUT("/submissions/:token/status", s.OverrideSubmissionStatus)

	// -------- Duplicates --------
	admin.GET("/duplicates", s.FindDuplicates)
	admin.POST("/duplicates/repair", s.RepairDuplicates)

	// -------- Tokens --------
	admin.POST("/tokens/backfill", s.BackfillTokens)
	admin.GET("/tokens/export", s.ExportTokens)
	admin.POST("/tokens/import", s.ImportTokens)
	admin.POST("/tokens/backup", s.BackupTokens)
	admin.POST("/tokens/restore", s.RestoreTokens)
	admin.GET("/tokens/stats", s.TokenStats)

	// -------- Purchase orders --------
	admin.GET("/purchase-orders", s.ListPurchaseOrders)
	admin.POST("/purchase-orders", s.SavePurchaseOrder)
	admin.GET("/purchase-orders/next-number", s.NextPurchaseOrderNumber)
	admin.GET("/purchase-orders/:number", s.GetPurchaseOrder)
	admin.DELETE("/purchase-orders/:number", s.DeletePurchaseOrder)
	admin.POST("/purchase-orders/:number/duplicate", s.DuplicatePurchaseOrder)
	admin.GET("/purchase-orders/:number/html", s.RenderPurchaseOrderHTML)
	admin.GET("/purchase-orders/:number/pdf", s.RenderPurchaseOrderPDF)

	// -------- Company profile --------
	admin.GET("/company", s.GetCompanyProfile)
	admin.PUT("/company", s.SaveCompanyProfile)
}
