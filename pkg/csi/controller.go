package csi

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Controller owns one ring buffer and one configuration, and mediates
// enable, disable and reconfiguration against a Driver. Construct one
// Controller per radio interface.
//
// Control operations (Init, Deinit, Enable, Disable, Reconfigure, Configure)
// must be called serially from a single goroutine; the controller does not
// synchronize concurrent control callers. The frame callback and ReadFrame
// are the only operations that run concurrently with anything, and they
// follow the single-producer/single-consumer discipline of Ring.
type Controller struct {
	driver Driver
	logger *slog.Logger
	epoch  time.Time

	cfg Config

	// buf is replaced wholesale on capacity changes, always while the
	// producer is quiescent. The atomic pointer keeps the frame callback's
	// load of the ring well-defined against the swap.
	buf atomic.Pointer[Ring]

	// enabled gates the frame callback. Set only after a fully successful
	// enable transition.
	enabled atomic.Bool
}

// New creates a disabled, uninitialized controller with the default
// configuration. The ring buffer is allocated lazily on Init or Enable.
func New(driver Driver, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		driver: driver,
		logger: logger,
		epoch:  time.Now(),
		cfg:    DefaultConfig(),
	}
}

// Init allocates the ring buffer at the configured capacity if it does not
// exist yet. Idempotent.
func (c *Controller) Init() error {
	if c.buf.Load() != nil {
		return nil
	}
	buf, err := NewRing(c.cfg.BufferFrames)
	if err != nil {
		return err
	}
	c.buf.Store(buf)
	c.logger.Info("csi buffer initialized", "frames", c.cfg.BufferFrames)
	return nil
}

// Deinit disables capture if necessary and releases the ring buffer,
// discarding any unread frames. Idempotent. If the driver refuses to stop
// capture the buffer is left in place, since releasing storage the producer
// may still write into is unsafe.
func (c *Controller) Deinit() error {
	if err := c.Disable(); err != nil {
		return err
	}
	c.buf.Store(nil)
	return nil
}

// Enable starts capture. No-op if already enabled. The ring buffer is
// allocated at the configured capacity if needed, then the configuration and
// frame callback are pushed to the driver before capture is switched on. Any
// driver failure aborts the transition; the controller never partially
// enables.
func (c *Controller) Enable() error {
	if c.enabled.Load() {
		return nil
	}

	if err := c.Init(); err != nil {
		return err
	}

	if err := c.driver.ApplyConfig(c.cfg.normalized()); err != nil {
		return fmt.Errorf("csi: apply config: %w", err)
	}
	if err := c.driver.RegisterFrameCallback(c.ingest); err != nil {
		return fmt.Errorf("csi: register frame callback: %w", err)
	}
	if err := c.driver.SetCaptureEnabled(true); err != nil {
		return fmt.Errorf("csi: enable capture: %w", err)
	}

	c.enabled.Store(true)
	c.logger.Info("csi enabled", "frames", c.Capacity())
	return nil
}

// Disable stops capture. No-op if already disabled. The ring buffer and its
// queued unread frames are left intact.
func (c *Controller) Disable() error {
	if !c.enabled.Load() {
		return nil
	}

	if err := c.driver.SetCaptureEnabled(false); err != nil {
		return fmt.Errorf("csi: disable capture: %w", err)
	}

	c.enabled.Store(false)
	c.logger.Info("csi disabled")
	return nil
}

// Reconfigure replaces the configuration. A capacity change is destructive:
// capture is stopped if running, the ring buffer is replaced (unread frames
// discarded) and capture is restarted. With capacity unchanged while enabled,
// the new configuration is re-applied to the driver in place and queued
// frames survive.
//
// The stored configuration is updated before the driver is touched, so a
// failed apply leaves the record reflecting the caller's intent rather than
// the driver's state. Callers that need the two in sync must retry.
func (c *Controller) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.cfg = cfg

	if cfg.BufferFrames != c.buf.Load().Capacity() {
		wasEnabled := c.enabled.Load()
		if wasEnabled {
			if err := c.Disable(); err != nil {
				return err
			}
		}

		// Producer is quiescent now; safe to replace storage.
		c.buf.Store(nil)
		buf, err := NewRing(cfg.BufferFrames)
		if err != nil {
			return err
		}
		c.buf.Store(buf)
		c.logger.Info("csi buffer resized", "frames", cfg.BufferFrames)

		if wasEnabled {
			return c.Enable()
		}
		return nil
	}

	if c.enabled.Load() {
		if err := c.driver.ApplyConfig(cfg.normalized()); err != nil {
			return fmt.Errorf("csi: apply config: %w", err)
		}
		c.logger.Info("csi config re-applied")
	}
	return nil
}

// Configure applies a partial options record on top of the current
// configuration (unset options retain their previous value) and
// reconfigures.
func (c *Controller) Configure(opts Options) error {
	return c.Reconfigure(opts.Apply(c.cfg))
}

// ingest is the producer entry point, invoked by the driver from its
// restricted context. It copies the raw frame into a Frame value, truncating
// the payload to MaxDataLen, and writes it to the ring. No allocation, no
// blocking, no calls back into the driver.
func (c *Controller) ingest(raw *RawFrame) {
	if !c.enabled.Load() {
		return
	}
	buf := c.buf.Load()
	if buf == nil {
		return
	}

	var f Frame
	f.RSSI = raw.RSSI
	f.Rate = raw.Rate
	f.SigMode = raw.SigMode
	f.MCS = raw.MCS
	f.CWB = raw.CWB
	f.Smoothing = raw.Smoothing
	f.NotSounding = raw.NotSounding
	f.Aggregation = raw.Aggregation
	f.STBC = raw.STBC
	f.FECCoding = raw.FECCoding
	f.SGI = raw.SGI
	f.NoiseFloor = raw.NoiseFloor
	f.AMPDUCount = raw.AMPDUCount
	f.Channel = raw.Channel
	f.SecondaryChannel = raw.SecondaryChannel
	f.LocalTimestamp = raw.LocalTimestamp
	f.Antenna = raw.Antenna
	f.SigLen = raw.SigLen
	f.RXState = raw.RXState
	f.MAC = raw.MAC

	n := len(raw.Data)
	if n > MaxDataLen {
		n = MaxDataLen
	}
	copy(f.Data[:n], raw.Data[:n])
	f.Len = uint16(n)

	f.TimestampUS = uint32(time.Since(c.epoch).Microseconds())

	buf.Write(&f)
}

// ReadFrame returns the oldest unread frame, or ok=false when there is no
// data. It never blocks.
func (c *Controller) ReadFrame() (Frame, bool) {
	var f Frame
	ok := c.buf.Load().Read(&f)
	return f, ok
}

// Dropped returns the number of frames discarded under overload.
func (c *Controller) Dropped() uint32 {
	return c.buf.Load().Dropped()
}

// Available returns the number of unread frames.
func (c *Controller) Available() int {
	return c.buf.Load().Available()
}

// Capacity returns the usable ring capacity, 0 when uninitialized.
func (c *Controller) Capacity() int {
	return c.buf.Load().Capacity()
}

// Enabled reports whether capture is running.
func (c *Controller) Enabled() bool {
	return c.enabled.Load()
}

// Config returns the current configuration record.
func (c *Controller) Config() Config {
	return c.cfg
}
