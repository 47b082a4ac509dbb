package csi

import "fmt"

const (
	// DefaultBufferFrames is the ring capacity used when none is configured.
	DefaultBufferFrames = 128

	// MaxBufferFrames is the system maximum ring capacity.
	MaxBufferFrames = 1024

	// shiftMask limits the manual-scale shift to 4 bits (0-15).
	shiftMask = 0x0F
)

// Config holds the capture configuration. It is a plain value record owned by
// the Controller; replacing it via Reconfigure is how capacity changes are
// requested.
type Config struct {
	// LLTF enables acquisition of the Legacy Long Training Field.
	LLTF bool `json:"lltf_en"`

	// HTLTF enables acquisition of the HT Long Training Field.
	HTLTF bool `json:"htltf_en"`

	// STBCHTLTF2 enables acquisition of the STBC HT-LTF2 field.
	STBCHTLTF2 bool `json:"stbc_htltf2_en"`

	// LTFMerge enables merging of adjacent LTF measurements.
	LTFMerge bool `json:"ltf_merge_en"`

	// ChannelFilter enables the radio's channel filter.
	ChannelFilter bool `json:"channel_filter_en"`

	// ManualScale selects manual scaling with the Shift amount below
	// instead of automatic scaling.
	ManualScale bool `json:"manu_scale"`

	// Shift is the manual-scale shift amount. Restricted to 0-15 by
	// masking when applied, not by rejection.
	Shift uint8 `json:"shift"`

	// BufferFrames is the requested ring capacity in frames, 1-1024.
	BufferFrames int `json:"buffer_size"`
}

// DefaultConfig returns the capture defaults: all training-field acquisition
// enabled, automatic scaling, a 128-frame buffer.
func DefaultConfig() Config {
	return Config{
		LLTF:          true,
		HTLTF:         true,
		STBCHTLTF2:    true,
		LTFMerge:      true,
		ChannelFilter: true,
		ManualScale:   false,
		Shift:         0,
		BufferFrames:  DefaultBufferFrames,
	}
}

// Validate checks bounds that must hold before the config is stored.
func (c *Config) Validate() error {
	if c.BufferFrames < 1 || c.BufferFrames > MaxBufferFrames {
		return fmt.Errorf("%w: buffer_size must be between 1 and %d, got %d",
			ErrInvalidConfig, MaxBufferFrames, c.BufferFrames)
	}
	return nil
}

// normalized returns a copy with the shift masked to its 4-bit range.
func (c Config) normalized() Config {
	c.Shift &= shiftMask
	return c
}

// Options is a partial configuration update. Nil fields retain the previous
// value; set fields replace it. This repo uses retain-previous semantics
// everywhere - unspecified options never fall back to fixed defaults.
type Options struct {
	LLTF          *bool  `json:"lltf_en,omitempty"`
	HTLTF         *bool  `json:"htltf_en,omitempty"`
	STBCHTLTF2    *bool  `json:"stbc_htltf2_en,omitempty"`
	LTFMerge      *bool  `json:"ltf_merge_en,omitempty"`
	ChannelFilter *bool  `json:"channel_filter_en,omitempty"`
	ManualScale   *bool  `json:"manu_scale,omitempty"`
	Shift         *uint8 `json:"shift,omitempty"`
	BufferFrames  *int   `json:"buffer_size,omitempty"`
}

// Apply returns cfg with the set fields of o overlaid.
func (o Options) Apply(cfg Config) Config {
	if o.LLTF != nil {
		cfg.LLTF = *o.LLTF
	}
	if o.HTLTF != nil {
		cfg.HTLTF = *o.HTLTF
	}
	if o.STBCHTLTF2 != nil {
		cfg.STBCHTLTF2 = *o.STBCHTLTF2
	}
	if o.LTFMerge != nil {
		cfg.LTFMerge = *o.LTFMerge
	}
	if o.ChannelFilter != nil {
		cfg.ChannelFilter = *o.ChannelFilter
	}
	if o.ManualScale != nil {
		cfg.ManualScale = *o.ManualScale
	}
	if o.Shift != nil {
		cfg.Shift = *o.Shift
	}
	if o.BufferFrames != nil {
		cfg.BufferFrames = *o.BufferFrames
	}
	return cfg
}
