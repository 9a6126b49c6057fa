package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/kaupskip/email-service/internal/core/ports"
	customMiddleware "github.com/kaupskip/email-service/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
	// SiteURL is the public site base used to build verification links.
	SiteURL string
}

type ServerDeps struct {
	VerificationService ports.VerificationService
	Mailer              ports.Mailer
	EmailLogRepository  ports.EmailLogRepository
	HealthCheckers      []ports.HealthChecker
}

type Server struct {
	echo            *echo.Echo
	config          *ServerConfig
	logger          *logrus.Logger
	verificationSvc ports.VerificationService
	mailer          ports.Mailer
	emailLogs       ports.EmailLogRepository
	middleware      *customMiddleware.MiddlewareCollection
	healthCheckers  []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.Validator = NewValidator()

	server := &Server{
		echo:            e,
		config:          serverConfig,
		logger:          logger,
		verificationSvc: deps.VerificationService,
		mailer:          deps.Mailer,
		emailLogs:       deps.EmailLogRepository,
		healthCheckers:  deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
