// Package config loads adaptor tuning parameters from an INI file,
// reusing gopkg.in/ini.v1 the way the teacher repo uses it for EDS
// parsing (samsamfire-gocanopen's od_parser.go), repurposed here for a
// much smaller schema.
package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"

	"github.com/kcuzner/swdadaptor/pkg/usbdevice"
)

// Config holds the tunable parameters of an Adaptor instance: pin
// assignment for the real GPIO Line Driver, timer period, and a
// descriptor override for boards shipping a vendor-specific VID/PID
// (SPEC_FULL.md §2.3 "Configuration"). QueueCapacityHint is not read
// by Load and nothing in this module uses it.
type Config struct {
	ClkPin string
	DioPin string

	HalfPeriod time.Duration

	QueueCapacityHint int

	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
}

// Default returns a Config matching the compiled-in defaults (spec.md
// §4.C DefaultHalfPeriod, usbdevice's VID/PID/strings), for use when no
// file is supplied or a [section] omits a key.
func Default() Config {
	return Config{
		ClkPin:       "GPIO17",
		DioPin:       "GPIO27",
		HalfPeriod:   2 * time.Microsecond,
		VendorID:     usbdevice.VendorID,
		ProductID:    usbdevice.ProductID,
		Manufacturer: usbdevice.Manufacturer,
		Product:      usbdevice.Product,
	}
}

// Load reads an INI file under a single [adaptor] section. Missing keys
// fall back to Default's values.
func Load(path string) (Config, error) {
	cfg := Default()

	file, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	section := file.Section("adaptor")

	if k := section.Key("clk_pin"); k.String() != "" {
		cfg.ClkPin = k.String()
	}
	if k := section.Key("dio_pin"); k.String() != "" {
		cfg.DioPin = k.String()
	}
	if k := section.Key("half_period_us"); k.String() != "" {
		us, err := k.Int()
		if err != nil {
			return Config{}, fmt.Errorf("config: half_period_us: %w", err)
		}
		cfg.HalfPeriod = time.Duration(us) * time.Microsecond
	}
	if k := section.Key("vendor_id"); k.String() != "" {
		v, err := k.Int()
		if err != nil {
			return Config{}, fmt.Errorf("config: vendor_id: %w", err)
		}
		cfg.VendorID = uint16(v)
	}
	if k := section.Key("product_id"); k.String() != "" {
		v, err := k.Int()
		if err != nil {
			return Config{}, fmt.Errorf("config: product_id: %w", err)
		}
		cfg.ProductID = uint16(v)
	}
	if k := section.Key("manufacturer"); k.String() != "" {
		cfg.Manufacturer = k.String()
	}
	if k := section.Key("product"); k.String() != "" {
		cfg.Product = k.String()
	}

	return cfg, nil
}
