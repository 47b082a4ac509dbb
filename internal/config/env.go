// Package config provides configuration helpers for go-csi commands.
package config

import (
	"os"
	"strconv"
)

// Defaults for the capture daemon.
const (
	DefaultHTTPAddr  = ":8090"
	DefaultBridgeURL = "ws://localhost:8091/ws/csi"
	DefaultBackend   = "mock"
)

// HTTPAddr returns the API listen address from CSI_HTTP_ADDR.
// Falls back to DefaultHTTPAddr if not set.
func HTTPAddr() string {
	if addr := os.Getenv("CSI_HTTP_ADDR"); addr != "" {
		return addr
	}
	return DefaultHTTPAddr
}

// Backend returns the capture backend from CSI_BACKEND: "mock" or "bridge".
func Backend() string {
	if backend := os.Getenv("CSI_BACKEND"); backend != "" {
		return backend
	}
	return DefaultBackend
}

// BridgeURL returns the firmware bridge websocket URL from CSI_BRIDGE_URL.
func BridgeURL() string {
	if url := os.Getenv("CSI_BRIDGE_URL"); url != "" {
		return url
	}
	return DefaultBridgeURL
}

// LogLevel returns the log level from CSI_LOG_LEVEL or "info".
func LogLevel() string {
	if level := os.Getenv("CSI_LOG_LEVEL"); level != "" {
		return level
	}
	return "info"
}

// BufferFrames returns the ring capacity from CSI_BUFFER_FRAMES.
// Falls back to the provided default when unset or unparseable.
func BufferFrames(fallback int) int {
	v := os.Getenv("CSI_BUFFER_FRAMES")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
