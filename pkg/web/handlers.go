package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/csikit/go-csi/pkg/csi"
)

// maxBatchFrames caps a single /frames response.
const maxBatchFrames = 256

// statusBody is the GET /status response.
type statusBody struct {
	Enabled   bool       `json:"enabled"`
	Capacity  int        `json:"capacity"`
	Available int        `json:"available"`
	Dropped   uint32     `json:"dropped"`
	Config    csi.Config `json:"config"`
}

// frameBody is one captured frame as served over HTTP and the stream. Field
// names follow the firmware's CSI record so captures line up with tooling
// written against the serial dump format.
type frameBody struct {
	RSSI             int8    `json:"rssi"`
	Rate             uint8   `json:"rate"`
	SigMode          uint8   `json:"sig_mode"`
	MCS              uint8   `json:"mcs"`
	CWB              uint8   `json:"cwb"`
	Smoothing        uint8   `json:"smoothing"`
	NotSounding      uint8   `json:"not_sounding"`
	Aggregation      uint8   `json:"aggregation"`
	STBC             uint8   `json:"stbc"`
	FECCoding        uint8   `json:"fec_coding"`
	SGI              uint8   `json:"sgi"`
	NoiseFloor       int8    `json:"noise_floor"`
	AMPDUCount       uint16  `json:"ampdu_cnt"`
	Channel          uint8   `json:"channel"`
	SecondaryChannel uint8   `json:"secondary_channel"`
	LocalTimestamp   uint32  `json:"local_timestamp"`
	Antenna          uint16  `json:"ant"`
	SigLen           uint16  `json:"sig_len"`
	RXState          uint32  `json:"rx_state"`
	MAC              [6]byte `json:"mac"`
	TimestampUS      uint32  `json:"timestamp_us"`
	Data             []int8  `json:"data"`
}

func newFrameBody(f *csi.Frame) frameBody {
	return frameBody{
		RSSI:             f.RSSI,
		Rate:             f.Rate,
		SigMode:          f.SigMode,
		MCS:              f.MCS,
		CWB:              f.CWB,
		Smoothing:        f.Smoothing,
		NotSounding:      f.NotSounding,
		Aggregation:      f.Aggregation,
		STBC:             f.STBC,
		FECCoding:        f.FECCoding,
		SGI:              f.SGI,
		NoiseFloor:       f.NoiseFloor,
		AMPDUCount:       f.AMPDUCount,
		Channel:          f.Channel,
		SecondaryChannel: f.SecondaryChannel,
		LocalTimestamp:   f.LocalTimestamp,
		Antenna:          f.Antenna,
		SigLen:           f.SigLen,
		RXState:          f.RXState,
		MAC:              f.MAC,
		TimestampUS:      f.TimestampUS,
		Data:             f.Samples(),
	}
}

// errorBody is any non-2xx response.
type errorBody struct {
	Error string `json:"error"`
}

// driverStatus maps a controller error to an HTTP status: config problems are
// the caller's fault, driver refusals are an upstream failure.
func driverStatus(err error) int {
	if errors.Is(err, csi.ErrInvalidConfig) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusBadGateway
}

// status snapshots the controller state under the control mutex.
func (s *Server) status() statusBody {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()
	return statusBody{
		Enabled:   s.controller.Enabled(),
		Capacity:  s.controller.Capacity(),
		Available: s.controller.Available(),
		Dropped:   s.controller.Dropped(),
		Config:    s.controller.Config(),
	}
}

// handleStatus reports the controller state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

// handleEnable starts capture.
func (s *Server) handleEnable(c *fiber.Ctx) error {
	s.ctlMu.Lock()
	err := s.controller.Enable()
	s.ctlMu.Unlock()
	if err != nil {
		return c.Status(driverStatus(err)).JSON(errorBody{Error: err.Error()})
	}
	return c.JSON(s.status())
}

// handleDisable stops capture. Buffered frames stay readable.
func (s *Server) handleDisable(c *fiber.Ctx) error {
	s.ctlMu.Lock()
	err := s.controller.Disable()
	s.ctlMu.Unlock()
	if err != nil {
		return c.Status(driverStatus(err)).JSON(errorBody{Error: err.Error()})
	}
	return c.JSON(s.status())
}

// handleConfig applies a partial configuration update. Absent fields keep
// their current values.
func (s *Server) handleConfig(c *fiber.Ctx) error {
	var opts csi.Options
	if err := c.BodyParser(&opts); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "malformed config body"})
	}
	s.ctlMu.Lock()
	err := s.controller.Configure(opts)
	s.ctlMu.Unlock()
	if err != nil {
		return c.Status(driverStatus(err)).JSON(errorBody{Error: err.Error()})
	}
	return c.JSON(s.status())
}

// handleRead pops one frame, or 204 when the buffer is empty.
func (s *Server) handleRead(c *fiber.Ctx) error {
	s.ctlMu.Lock()
	frame, ok := s.controller.ReadFrame()
	s.ctlMu.Unlock()
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(newFrameBody(&frame))
}

// framesBody is the GET /frames response.
type framesBody struct {
	Frames  []frameBody `json:"frames"`
	Dropped uint32      `json:"dropped"`
}

// handleFrames pops up to ?max=N frames in one response.
func (s *Server) handleFrames(c *fiber.Ctx) error {
	max := c.QueryInt("max", maxBatchFrames)
	if max < 1 || max > maxBatchFrames {
		max = maxBatchFrames
	}

	body := framesBody{Frames: make([]frameBody, 0, max)}
	s.ctlMu.Lock()
	for len(body.Frames) < max {
		frame, ok := s.controller.ReadFrame()
		if !ok {
			break
		}
		body.Frames = append(body.Frames, newFrameBody(&frame))
	}
	body.Dropped = s.controller.Dropped()
	s.ctlMu.Unlock()
	return c.JSON(body)
}
