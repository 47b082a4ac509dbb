// csid is the CSI capture daemon: it drives a capture backend (the firmware
// bridge or the built-in mock radio), buffers frames in the ring and serves
// them over the HTTP/websocket API.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/csikit/go-csi/internal/config"
	"github.com/csikit/go-csi/internal/log"
	"github.com/csikit/go-csi/pkg/bridge"
	"github.com/csikit/go-csi/pkg/csi"
	"github.com/csikit/go-csi/pkg/web"
)

func main() {
	addr := flag.String("addr", config.HTTPAddr(), "HTTP API listen address")
	backend := flag.String("backend", config.Backend(), "capture backend: mock or bridge")
	bridgeURL := flag.String("bridge-url", config.BridgeURL(), "firmware bridge websocket URL")
	frames := flag.Int("frames", config.BufferFrames(csi.DefaultBufferFrames), "ring capacity in frames")
	enable := flag.Bool("enable", true, "start capturing immediately")
	logLevel := flag.String("log-level", config.LogLevel(), "log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)
	logger := log.Component("csid")

	var driver csi.Driver
	switch *backend {
	case "mock":
		mock := csi.NewMockDriver(log.Component("mock"), csi.WithFrameInterval(10*time.Millisecond))
		defer mock.Close()
		driver = mock
	case "bridge":
		client, err := bridge.Dial(*bridgeURL, log.Component("bridge"))
		if err != nil {
			logger.Error("bridge dial failed", "url", *bridgeURL, "err", err)
			os.Exit(1)
		}
		defer client.Close()
		driver = client
	default:
		logger.Error("unknown backend", "backend", *backend)
		os.Exit(1)
	}

	controller := csi.New(driver, logger)
	opts := csi.Options{BufferFrames: frames}
	if err := controller.Configure(opts); err != nil {
		logger.Error("invalid buffer size", "frames", *frames, "err", err)
		os.Exit(1)
	}
	if err := controller.Init(); err != nil {
		logger.Error("buffer init failed", "err", err)
		os.Exit(1)
	}
	if *enable {
		if err := controller.Enable(); err != nil {
			logger.Error("capture enable failed", "err", err)
			os.Exit(1)
		}
	}

	server := web.NewServer(*addr, controller, log.Component("web"))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down")
		if err := controller.Deinit(); err != nil {
			logger.Error("capture shutdown failed", "err", err)
		}
		if err := server.Shutdown(); err != nil {
			logger.Error("server shutdown failed", "err", err)
		}
	}()

	logger.Info("csid starting", "addr", *addr, "backend", *backend, "frames", *frames)
	if err := server.Start(); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}
