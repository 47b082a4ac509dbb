// Package web exposes the capture controller over HTTP and websocket: REST
// endpoints for the control operations and a streaming endpoint that pushes
// captured frames to subscribers as they are drained from the ring.
package web

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/csikit/go-csi/pkg/csi"
	"github.com/csikit/go-csi/pkg/hub"
)

// defaultPollInterval is how often the stream pump drains the ring when
// subscribers are connected.
const defaultPollInterval = 20 * time.Millisecond

// Server serves the CSI HTTP API and the frame stream.
//
// The controller's control operations and ring reads are serial-use; fiber
// runs handlers concurrently and the stream pump is its own goroutine, so
// ctlMu serializes every controller access. This is also what keeps the ring's
// single-consumer discipline intact when REST reads and the pump overlap.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	ctlMu      sync.Mutex
	controller *csi.Controller
	frameHub   *hub.Hub

	pollInterval time.Duration
	stopPump     chan struct{}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithPollInterval sets the stream pump drain interval.
func WithPollInterval(d time.Duration) ServerOption {
	return func(s *Server) {
		s.pollInterval = d
	}
}

// NewServer creates the API server for one capture controller.
func NewServer(addr string, controller *csi.Controller, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:         addr,
		logger:       logger,
		controller:   controller,
		frameHub:     hub.New("frames", logger),
		pollInterval: defaultPollInterval,
		stopPump:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-csi",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api/csi")
	api.Get("/status", s.handleStatus)
	api.Post("/enable", s.handleEnable)
	api.Post("/disable", s.handleDisable)
	api.Post("/config", s.handleConfig)
	api.Get("/read", s.handleRead)
	api.Get("/frames", s.handleFrames)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))

	s.app = app
	return s
}

// Start runs the hub, the stream pump and the listener. Blocks.
func (s *Server) Start() error {
	go s.frameHub.Run()
	go s.streamPump()

	s.logger.Info("csi api listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown stops the pump, the hub and the listener.
func (s *Server) Shutdown() error {
	close(s.stopPump)
	s.frameHub.Stop()
	return s.app.Shutdown()
}

// streamPump drains frames from the controller and broadcasts them while at
// least one stream subscriber is connected.
func (s *Server) streamPump() {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopPump:
			return
		case <-ticker.C:
			if s.frameHub.ClientCount() == 0 {
				continue
			}
			for {
				s.ctlMu.Lock()
				frame, ok := s.controller.ReadFrame()
				s.ctlMu.Unlock()
				if !ok {
					break
				}
				if err := s.frameHub.BroadcastJSON(newFrameBody(&frame)); err != nil {
					s.logger.Error("frame broadcast failed", "err", err)
				}
			}
		}
	}
}

// handleFramesWS subscribes a websocket client to the frame stream.
func (s *Server) handleFramesWS(c *websocket.Conn) {
	client := hub.NewClient(s.frameHub, c)
	client.Run()
}
