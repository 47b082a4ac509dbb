package csi

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMockDriver_StartStop(t *testing.T) {
	drv := NewMockDriver(nil, WithFrameInterval(5*time.Millisecond))
	defer drv.Close()

	if err := drv.SetCaptureEnabled(true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	// Enabling again is a no-op.
	if err := drv.SetCaptureEnabled(true); err != nil {
		t.Fatalf("second enable: %v", err)
	}

	if err := drv.SetCaptureEnabled(false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if err := drv.SetCaptureEnabled(false); err != nil {
		t.Fatalf("second disable: %v", err)
	}
}

func TestMockDriver_DeliversFrames(t *testing.T) {
	drv := NewMockDriver(nil,
		WithFrameInterval(2*time.Millisecond),
		WithChannel(11),
	)
	defer drv.Close()

	var got atomic.Int64
	var lastChannel atomic.Int32
	err := drv.RegisterFrameCallback(func(raw *RawFrame) {
		got.Add(1)
		lastChannel.Store(int32(raw.Channel))
		if len(raw.Data) != MaxDataLen {
			t.Errorf("payload length %d, want %d", len(raw.Data), MaxDataLen)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := drv.SetCaptureEnabled(true); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for got.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if got.Load() < 3 {
		t.Fatalf("only %d frames delivered", got.Load())
	}

	if err := drv.SetCaptureEnabled(false); err != nil {
		t.Fatal(err)
	}

	// Quiescence: no deliveries after disable returns.
	after := got.Load()
	time.Sleep(20 * time.Millisecond)
	if got.Load() != after {
		t.Fatal("frames delivered after capture disabled")
	}

	if lastChannel.Load() != 11 {
		t.Errorf("channel = %d, want 11", lastChannel.Load())
	}
	if drv.FramesSent() != after {
		t.Errorf("FramesSent = %d, want %d", drv.FramesSent(), after)
	}
}

func TestMockDriver_FaultInjection(t *testing.T) {
	errCfg := errors.New("config boom")
	errCap := errors.New("capture boom")
	drv := NewMockDriver(nil, WithFailures(errCfg, errCap))

	if err := drv.ApplyConfig(DefaultConfig()); !errors.Is(err, errCfg) {
		t.Errorf("ApplyConfig err = %v, want injected", err)
	}
	if err := drv.SetCaptureEnabled(true); !errors.Is(err, errCap) {
		t.Errorf("SetCaptureEnabled err = %v, want injected", err)
	}
}

func TestMockDriver_ClosedRejectsCalls(t *testing.T) {
	drv := NewMockDriver(nil)
	if err := drv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := drv.ApplyConfig(DefaultConfig()); !errors.Is(err, ErrClosed) {
		t.Errorf("ApplyConfig after close: %v", err)
	}
	if err := drv.RegisterFrameCallback(func(*RawFrame) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("RegisterFrameCallback after close: %v", err)
	}
	if err := drv.SetCaptureEnabled(true); !errors.Is(err, ErrClosed) {
		t.Errorf("SetCaptureEnabled after close: %v", err)
	}
}

// End-to-end: mock driver feeding a controller, frames flowing out the
// consumer side.
func TestMockDriver_WithController(t *testing.T) {
	drv := NewMockDriver(nil, WithFrameInterval(2*time.Millisecond))
	defer drv.Close()

	c := New(drv, nil)
	if err := c.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for c.Available() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}

	f, ok := c.ReadFrame()
	if !ok {
		t.Fatal("no frame arrived from mock driver")
	}
	if f.Len != MaxDataLen {
		t.Errorf("frame Len = %d, want %d", f.Len, MaxDataLen)
	}
	if f.Channel != 6 {
		t.Errorf("frame channel = %d, want default 6", f.Channel)
	}

	if err := c.Deinit(); err != nil {
		t.Fatalf("Deinit: %v", err)
	}
}
