package main

import (
	"fmt"
	"net/http"
	"os"

	"luma-live/stagepass/ticket-queue-server/pkg/infra"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Server struct {
	application *Application
	server      *http.Server
	logger      *zap.SugaredLogger
}

func ProvideServer(application *Application, loggerFactory *infra.LoggerFactory) *Server {
	logger := loggerFactory.Create("Server").Sugar()

	e := echo.New()
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogRequestID: true,
		LogStatus:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Infof("%v %v id[%v] status[%v] latency[%vms]\n", v.Method, v.URI, v.RequestID, v.Status, v.Latency.Milliseconds())
			return nil
		},
	}))

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok\n")
	})

	e.PUT("/debug", func(c echo.Context) error {
		infra.LoggerLevel.SetLevel(zapcore.DebugLevel)
		logger.Info("debug logging enabled")
		return c.NoContent(http.StatusOK)
	})

	e.DELETE("/debug", func(c echo.Context) error {
		infra.LoggerLevel.SetLevel(zapcore.InfoLevel)
		logger.Info("debug logging disabled")
		return c.NoContent(http.StatusOK)
	})

	e.POST("/api/register", application.HandleRegister)
	e.POST("/api/process_user", application.HandleProcessUser)
	e.POST("/api/process_next", application.HandleProcessNext)
	e.DELETE("/api/cancel_ticket", application.HandleCancel)

	e.GET("/availability", application.HandleAvailability)
	e.GET("/queue", application.HandleQueue)
	e.GET("/stats", application.HandleStats)
	e.GET("/summary", application.HandleSummary)

	e.GET("/ws", application.HandleWs)

	return &Server{
		application: application,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%v", os.Getenv("SERVER_PORT")),
			Handler: e,
		},
		logger: logger,
	}
}

func (s *Server) Run() {
	s.logger.Infof("server running application")
	go s.application.Run()

	s.logger.Infof("server starts listening on port[%v]", os.Getenv("SERVER_PORT"))
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		s.logger.Error(err)
	}
}
