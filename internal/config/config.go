// Package config loads the flipdotd configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Drivers.
const (
	DriverPanel  = "panel"
	DriverModule = "module"
)

// Config is the daemon configuration.
type Config struct {
	// Driver selects the display hardware, "panel" or "module".
	Driver string `json:"driver"`

	// Listen is the HTTP listen address.
	Listen string `json:"listen"`

	// RequestTimeout bounds how long an HTTP request waits for the display.
	RequestTimeout Duration `json:"request_timeout"`

	Panel  Panel  `json:"panel"`
	Module Module `json:"module"`
}

// Panel configures the shift register panel driver.
type Panel struct {
	SPIPort  string `json:"spi_port"`
	SPISpeed int64  `json:"spi_speed"` // Hz

	Cols      int `json:"cols"`
	Rows      int `json:"rows"`
	QueueSize int `json:"queue_size"`

	FlipPulse   Duration `json:"flip_pulse"`
	Settle      Duration `json:"settle"`
	IdleTimeout Duration `json:"idle_timeout"`

	Clear     Pin `json:"clear"`
	Latch     Pin `json:"latch"`
	Coil      Pin `json:"coil"`
	Indicator Pin `json:"indicator"`
	Backlight Pin `json:"backlight"`

	// Font is a TrueType font file, empty for the built in 7x13 font.
	Font     string  `json:"font"`
	FontSize float64 `json:"font_size"`
}

// Module configures the RS-485 module driver.
type Module struct {
	Device string `json:"device"`
	Baud   int    `json:"baud"`

	Address int `json:"address"`
	Width   int `json:"width"`
	Height  int `json:"height"`
	Font    int `json:"font"`

	Settle      Duration `json:"settle"`
	IdleTimeout Duration `json:"idle_timeout"` // negative disables

	Power     Pin   `json:"power"`
	Backlight Pin   `json:"backlight"`
	Enable    []Pin `json:"enable"`
	TxEnable  Pin   `json:"tx_enable"`
}

// Pin names a GPIO line, either a periph name ("GPIO17") or "gpiochipN:offset".
type Pin struct {
	Name      string `json:"name"`
	ActiveLow bool   `json:"active_low"`
}

// Duration is a time.Duration that reads from JSON as "5ms" or as nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case float64:
		d.Duration = time.Duration(v)
	case string:
		var err error
		if d.Duration, err = time.ParseDuration(v); err != nil {
			return err
		}
	default:
		return fmt.Errorf("config: invalid duration %s", b)
	}
	return nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Driver:         DriverPanel,
		Listen:         ":8080",
		RequestTimeout: Duration{10 * time.Second},
		Panel: Panel{
			SPISpeed:    10_000_000,
			Cols:        112,
			Rows:        19,
			QueueSize:   50,
			FlipPulse:   Duration{200 * time.Microsecond},
			Settle:      Duration{5 * time.Millisecond},
			IdleTimeout: Duration{time.Second},
			Clear:       Pin{Name: "GPIO25"},
			Latch:       Pin{Name: "GPIO24"},
			Coil:        Pin{Name: "GPIO23"},
			Backlight:   Pin{Name: "GPIO19"},
			FontSize:    13,
		},
		Module: Module{
			Device:      "/dev/ttyS0",
			Baud:        4800,
			Address:     0x06,
			Width:       112,
			Height:      19,
			Font:        0x73,
			Settle:      Duration{500 * time.Millisecond},
			IdleTimeout: Duration{-1},
			Power:       Pin{Name: "GPIO18", ActiveLow: true},
			Backlight:   Pin{Name: "GPIO5", ActiveLow: true},
			Enable:      []Pin{{Name: "GPIO17"}, {Name: "GPIO27"}},
		},
	}
}

// Load reads the configuration file at path on top of the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	config := Default()
	if err := json.NewDecoder(f).Decode(config); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return config, nil
}

// Validate checks values the drivers can't default.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverPanel:
		if c.Panel.Clear.Name == "" || c.Panel.Latch.Name == "" || c.Panel.Coil.Name == "" {
			return fmt.Errorf("panel clear, latch and coil pins are required")
		}
		if c.Panel.Cols < 0 || c.Panel.Rows < 0 || c.Panel.QueueSize < 0 {
			return fmt.Errorf("invalid panel size %dx%d queue %d", c.Panel.Cols, c.Panel.Rows, c.Panel.QueueSize)
		}
	case DriverModule:
		if c.Module.Device == "" {
			return fmt.Errorf("module device is required")
		}
		for name, v := range map[string]int{
			"address": c.Module.Address,
			"width":   c.Module.Width,
			"height":  c.Module.Height,
			"font":    c.Module.Font,
		} {
			if v < 0 || v > 0xff {
				return fmt.Errorf("module %s %d out of range", name, v)
			}
		}
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	return nil
}
