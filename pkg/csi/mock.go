package csi

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MockDriver is a Driver that generates synthetic CSI frames, for testing and
// for running the daemon without radio hardware. While capture is enabled it
// delivers frames from a single goroutine at a fixed interval, with a slowly
// drifting RSSI and sinusoidal subcarrier amplitudes so downstream consumers
// have something plausible to look at.
type MockDriver struct {
	logger *slog.Logger

	mu      sync.Mutex
	cb      FrameCallback
	cfg     Config
	running bool
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// Fault injection: non-nil errors are returned by the matching call.
	configErr  error
	captureErr error

	framesSent atomic.Int64

	interval time.Duration
	channel  uint8
	mac      [6]byte
	phase    float64
}

// MockDriverOption configures a MockDriver.
type MockDriverOption func(*MockDriver)

// WithFrameInterval sets the synthetic frame interval.
func WithFrameInterval(d time.Duration) MockDriverOption {
	return func(m *MockDriver) {
		m.interval = d
	}
}

// WithChannel sets the WiFi channel reported in synthetic frames.
func WithChannel(ch uint8) MockDriverOption {
	return func(m *MockDriver) {
		m.channel = ch
	}
}

// WithTransmitterMAC sets the source hardware address reported in frames.
func WithTransmitterMAC(mac [6]byte) MockDriverOption {
	return func(m *MockDriver) {
		m.mac = mac
	}
}

// WithFailures makes ApplyConfig and SetCaptureEnabled return the given
// errors, for exercising failure paths.
func WithFailures(configErr, captureErr error) MockDriverOption {
	return func(m *MockDriver) {
		m.configErr = configErr
		m.captureErr = captureErr
	}
}

// NewMockDriver creates a mock driver. Frames are generated at 50ms
// intervals on channel 6 unless overridden.
func NewMockDriver(logger *slog.Logger, opts ...MockDriverOption) *MockDriver {
	if logger == nil {
		logger = slog.Default()
	}

	m := &MockDriver{
		logger:   logger,
		cfg:      DefaultConfig(),
		interval: 50 * time.Millisecond,
		channel:  6,
		mac:      [6]byte{0x24, 0x6f, 0x28, 0xae, 0x01, 0x52},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ApplyConfig stores the configuration.
func (m *MockDriver) ApplyConfig(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.configErr != nil {
		return m.configErr
	}

	m.cfg = cfg
	m.logger.Debug("mock driver config applied",
		"lltf", cfg.LLTF,
		"manu_scale", cfg.ManualScale,
		"shift", cfg.Shift,
	)
	return nil
}

// RegisterFrameCallback installs the frame callback.
func (m *MockDriver) RegisterFrameCallback(cb FrameCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.cb = cb
	return nil
}

// SetCaptureEnabled starts or stops the generator goroutine. Stopping waits
// for the goroutine to exit, so no callback is in flight once it returns.
func (m *MockDriver) SetCaptureEnabled(enabled bool) error {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.captureErr != nil {
		m.mu.Unlock()
		return m.captureErr
	}
	if enabled == m.running {
		m.mu.Unlock()
		return nil
	}

	if enabled {
		m.running = true
		m.stopCh = make(chan struct{})
		m.doneCh = make(chan struct{})
		go m.generateLoop(m.stopCh, m.doneCh)
		m.mu.Unlock()

		m.logger.Info("mock capture started", "interval", m.interval)
		return nil
	}

	m.running = false
	stop, done := m.stopCh, m.doneCh
	m.mu.Unlock()

	// The generator may be inside the callback; wait for it to drain so
	// the quiescence contract of Driver holds.
	close(stop)
	<-done

	m.logger.Info("mock capture stopped", "frames_sent", m.framesSent.Load())
	return nil
}

func (m *MockDriver) generateLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			raw := m.generateFrame(time.Since(start))
			if cb := m.callback(); cb != nil {
				cb(&raw)
				m.framesSent.Add(1)
			}
		}
	}
}

func (m *MockDriver) callback() FrameCallback {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cb
}

func (m *MockDriver) generateFrame(elapsed time.Duration) RawFrame {
	m.phase += 0.05

	data := make([]int8, MaxDataLen)
	for i := range data {
		// Two interleaved sinusoids stand in for I/Q subcarrier values.
		amp := 48 * math.Sin(float64(i/2)*0.2+m.phase)
		data[i] = int8(amp)
	}

	rssi := int8(-55 + 8*math.Sin(m.phase/3))

	return RawFrame{
		RSSI:           rssi,
		Rate:           11,
		SigMode:        1, // HT
		MCS:            7,
		Channel:        m.channel,
		NoiseFloor:     -92,
		LocalTimestamp: uint32(elapsed.Microseconds()),
		SigLen:         64,
		MAC:            m.mac,
		Data:           data,
	}
}

// FramesSent returns the number of synthetic frames delivered.
func (m *MockDriver) FramesSent() int64 {
	return m.framesSent.Load()
}

// Close stops the generator and rejects further driver calls.
func (m *MockDriver) Close() error {
	if err := m.SetCaptureEnabled(false); err != nil && err != ErrClosed {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Ensure MockDriver implements Driver.
var _ Driver = (*MockDriver)(nil)
