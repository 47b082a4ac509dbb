package csi

// RawFrame is the driver-supplied capture record: scalar metadata plus a
// payload slice owned by the driver. The controller copies everything out
// synchronously inside the frame callback and retains no reference to Data
// after the callback returns.
type RawFrame struct {
	RSSI             int8
	Rate             uint8
	SigMode          uint8
	MCS              uint8
	CWB              uint8
	Smoothing        uint8
	NotSounding      uint8
	Aggregation      uint8
	STBC             uint8
	FECCoding        uint8
	SGI              uint8
	NoiseFloor       int8
	AMPDUCount       uint16
	Channel          uint8
	SecondaryChannel uint8
	LocalTimestamp   uint32
	Antenna          uint16
	SigLen           uint16
	RXState          uint32
	MAC              [6]byte

	// Data is the CSI payload. May be longer than MaxDataLen; the
	// controller truncates. Valid only for the duration of the callback.
	Data []int8
}

// FrameCallback receives captured frames. The driver invokes it from a single
// goroutine (or equivalent restricted context); implementations must not
// block, allocate, or call back into the driver.
type FrameCallback func(raw *RawFrame)

// Driver is the capture capability required from the radio layer. All three
// operations are fallible and are treated as such; the Controller enforces
// the only ordering that matters (config and callback registration before
// enabling capture).
//
// Contract: SetCaptureEnabled(false) must not return while a frame callback
// is in flight, and no further callbacks may be delivered until capture is
// enabled again. The Controller relies on this to replace the ring buffer
// without the producer writing into freed storage.
type Driver interface {
	// ApplyConfig pushes the capture configuration to the radio.
	ApplyConfig(cfg Config) error

	// RegisterFrameCallback installs the frame-ingestion callback.
	RegisterFrameCallback(cb FrameCallback) error

	// SetCaptureEnabled starts or stops frame delivery.
	SetCaptureEnabled(enabled bool) error
}
