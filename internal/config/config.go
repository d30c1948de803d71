// Package config provides configuration types, defaults and YAML loading for avsbatch.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default constants
const (
	// DefaultEncoder is the segment encoder executable.
	DefaultEncoder = "x264"

	// DefaultMerger is the container merger executable.
	DefaultMerger = "mkvmerge"

	// DefaultContainerExt is the extension of the merged output.
	DefaultContainerExt = "mkv"

	// DefaultScriptExt is the extension of segment scripts.
	DefaultScriptExt = "avs"

	// DefaultEncodedExt is the extension of encoded segments.
	DefaultEncodedExt = "264"

	// DefaultSAR is the sample aspect ratio passed to the encoder.
	DefaultSAR = "16:15"

	// DefaultPollInterval is how often progress is reported while encoding.
	DefaultPollInterval = time.Second

	// DefaultPresetName names the built-in encoder preset.
	DefaultPresetName = "Default"
)

// defaultPresetArgs are the built-in x264 settings, tuned for high quality
// standard definition sources.
const defaultPresetArgs = "--level 4.1 --preset placebo --cabac --ref 5 --deblock -3:-3 " +
	"--partitions all --me umh --subme 8 --psy-rd 1.00:0.00 --merange 24 --trellis 2 " +
	"--8x8dct --cqm flat --deadzone-inter 21 --deadzone-intra 11 --chroma-qp-offset 0 " +
	"--threads 12 --lookahead-threads 2 --no-dct-decimate --bframes 6 --b-pyramid normal " +
	"--b-adapt 2 --b-bias 0 --direct auto --weightp 2 --keyint 500 --min-keyint 50 " +
	"--scenecut 40 --rc-lookahead 40 --crf 20.0 --qcomp 0.60 --qpmin 10 --qpmax 51 " +
	"--qpstep 4 --ipratio 1.40 --aq-mode 1 --aq-strength 1.00"

// EncoderPreset is a named set of encoder arguments.
type EncoderPreset struct {
	Name string `yaml:"name"`
	Args Args   `yaml:"args"`
}

// DefaultPreset returns the built-in encoder preset.
func DefaultPreset() EncoderPreset {
	return EncoderPreset{Name: DefaultPresetName, Args: ParseArgs(defaultPresetArgs)}
}

// ParseArgs splits a command line fragment on whitespace.
func ParseArgs(s string) Args {
	return Args(strings.Fields(s))
}

// Config holds all configuration for batch encoding.
type Config struct {
	// External tools
	Encoder string `yaml:"encoder"`
	Merger  string `yaml:"merger"`

	// Parallel encoders per job; 0 means one per logical CPU
	Parallelism int `yaml:"parallelism"`

	// File naming
	ContainerExt string `yaml:"container_ext"`
	ScriptExt    string `yaml:"script_ext"`
	EncodedExt   string `yaml:"encoded_ext"`

	// Job defaults
	SAR     string `yaml:"sar"`
	Cleanup bool   `yaml:"cleanup"`

	// Encoder presets; the built-in Default preset is always available
	Presets      []EncoderPreset `yaml:"presets"`
	ActivePreset string          `yaml:"active_preset"`

	// Reporting
	PollInterval time.Duration `yaml:"poll_interval"`
	LogDir       string        `yaml:"log_dir"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Encoder:      DefaultEncoder,
		Merger:       DefaultMerger,
		Parallelism:  0,
		ContainerExt: DefaultContainerExt,
		ScriptExt:    DefaultScriptExt,
		EncodedExt:   DefaultEncodedExt,
		SAR:          DefaultSAR,
		Cleanup:      true,
		ActivePreset: DefaultPresetName,
		PollInterval: DefaultPollInterval,
	}
}

// AllPresets returns the built-in preset followed by the configured ones.
// A configured preset named like the built-in one replaces it.
func (c *Config) AllPresets() []EncoderPreset {
	presets := []EncoderPreset{DefaultPreset()}
	for _, p := range c.Presets {
		if p.Name == DefaultPresetName {
			presets[0] = p
			continue
		}
		presets = append(presets, p)
	}
	return presets
}

// Preset looks up a preset by name. An empty name selects the active preset.
func (c *Config) Preset(name string) (EncoderPreset, error) {
	if name == "" {
		name = c.ActivePreset
	}
	if name == "" {
		name = DefaultPresetName
	}
	for _, p := range c.AllPresets() {
		if p.Name == name {
			return p, nil
		}
	}
	return EncoderPreset{}, fmt.Errorf("%w: %q is not defined", ErrInvalidPreset, name)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Parallelism < 0 {
		return fmt.Errorf("%w: must be 0 (auto) or positive, got %d", ErrInvalidParallelism, c.Parallelism)
	}
	if strings.TrimSpace(c.Encoder) == "" {
		return fmt.Errorf("%w: encoder", ErrMissingExecutable)
	}
	if strings.TrimSpace(c.Merger) == "" {
		return fmt.Errorf("%w: merger", ErrMissingExecutable)
	}
	if err := ValidateSAR(c.SAR); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, p := range c.Presets {
		if p.Name == "" {
			return fmt.Errorf("%w: preset without a name", ErrInvalidPreset)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: %q defined twice", ErrInvalidPreset, p.Name)
		}
		seen[p.Name] = true
	}
	if _, err := c.Preset(c.ActivePreset); err != nil {
		return err
	}
	return nil
}

// ValidateSAR checks that sar has the form N:M with positive integers.
func ValidateSAR(sar string) error {
	n, m, ok := strings.Cut(sar, ":")
	if !ok {
		return fmt.Errorf("%w: %q, expected N:M", ErrInvalidSAR, sar)
	}
	for _, part := range []string{n, m} {
		v, err := strconv.Atoi(part)
		if err != nil || v <= 0 {
			return fmt.Errorf("%w: %q, expected N:M", ErrInvalidSAR, sar)
		}
	}
	return nil
}
