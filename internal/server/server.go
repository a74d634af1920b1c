package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	accountdomain "github.com/smallbiznis/cashout/internal/account/domain"
	"github.com/smallbiznis/cashout/internal/config"
	"github.com/smallbiznis/cashout/internal/observability"
	obsmiddleware "github.com/smallbiznis/cashout/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/cashout/internal/observability/metrics"
	obstracing "github.com/smallbiznis/cashout/internal/observability/tracing"
	"github.com/smallbiznis/cashout/internal/ratelimit"
	riskdomain "github.com/smallbiznis/cashout/internal/risk/domain"
	tokendomain "github.com/smallbiznis/cashout/internal/token/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func NewEngine(obsCfg observability.Config, metrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	genID       *snowflake.Node
	tokenSvc    tokendomain.Service
	accountRepo accountdomain.Repository
	riskSvc     riskdomain.Evaluator
	limiter     *ratelimit.RedemptionLimiter
	metrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	GenID       *snowflake.Node
	TokenSvc    tokendomain.Service
	AccountRepo accountdomain.Repository
	RiskSvc     riskdomain.Evaluator
	Limiter     *ratelimit.RedemptionLimiter `optional:"true"`
	Metrics     *obsmetrics.Metrics          `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		genID:       p.GenID,
		tokenSvc:    p.TokenSvc,
		accountRepo: p.AccountRepo,
		riskSvc:     p.RiskSvc,
		limiter:     p.Limiter,
		metrics:     p.Metrics,
	}

	svc.registerTokenRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerTokenRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/tokens", s.GenerateToken)
	v1.POST("/redemptions", s.RedemptionRateLimit(), s.RedeemToken)
}

// RunHTTP starts the HTTP listener and wires graceful shutdown.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
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
