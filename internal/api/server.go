package api

import (
	"github.com/IBM/sarama"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	jwtware "github.com/gofiber/jwt/v3"

	"github.com/brunocserra/extincor-pdf-function/internal/config"
	"github.com/brunocserra/extincor-pdf-function/internal/jobs"
	"github.com/brunocserra/extincor-pdf-function/pkg/database"
)

// Server is the HTTP intake for report jobs: it persists a job row, hands
// the payload to Kafka and answers status lookups. It also keeps the
// synchronous render path for callers that want the PDF in one round trip.
type Server struct {
	app      *fiber.App
	cfg      *config.Config
	db       *database.Clients
	producer sarama.SyncProducer
	handler  *jobs.Handler
	tracker  jobs.StageTracker
}

func NewServer(cfg *config.Config, db *database.Clients, producer sarama.SyncProducer,
	handler *jobs.Handler, tracker jobs.StageTracker) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout: cfg.Server.RequestTimeout,
	})

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status}\n",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.MaxRequests,
		Expiration: cfg.Server.RequestTimeout,
	}))

	server := &Server{
		app:      app,
		cfg:      cfg,
		db:       db,
		producer: producer,
		handler:  handler,
		tracker:  tracker,
	}
	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	api := s.app.Group("/api")

	api.Post("/login", s.handleLogin)

	protected := api.Use(jwtware.New(jwtware.Config{
		SigningKey: []byte(s.cfg.JWT.Secret),
	}))
	protected.Post("/reports", s.handleCreateReport)
	protected.Get("/reports/:id", s.handleGetReport)
	protected.Get("/reports", s.handleListReports)
	protected.Post("/reports/render", s.handleRenderReport)
}

func (s *Server) Start() error {
	return s.app.Listen(s.cfg.Server.Port)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
