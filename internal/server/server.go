package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amendmentdomain "github.com/smallbiznis/taxledger/internal/amendment/domain"
	"github.com/smallbiznis/taxledger/internal/config"
	ingestiondomain "github.com/smallbiznis/taxledger/internal/ingestion/domain"
	"github.com/smallbiznis/taxledger/internal/observability"
	obsmiddleware "github.com/smallbiznis/taxledger/internal/observability/logger"
	obstracing "github.com/smallbiznis/taxledger/internal/observability/tracing"
	taxpositiondomain "github.com/smallbiznis/taxledger/internal/taxposition/domain"
	"go.uber.org/fx"
)

// Module wires the HTTP surface of the service.
var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterAPIRoutes()
	}),
	fx.Invoke(run),
)

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

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	ingestionSvc   ingestiondomain.Service
	amendmentSvc   amendmentdomain.Service
	taxPositionSvc taxpositiondomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	IngestionSvc   ingestiondomain.Service
	AmendmentSvc   amendmentdomain.Service
	TaxPositionSvc taxpositiondomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		ingestionSvc:   p.IngestionSvc,
		amendmentSvc:   p.AmendmentSvc,
		taxPositionSvc: p.TaxPositionSvc,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/transactions", s.IngestTransaction)
	api.PATCH("/sale", s.AmendSale)
	api.GET("/tax-position", s.GetTaxPosition)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
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
