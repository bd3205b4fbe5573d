// Package config parses the wbscan command line, grounded on
// cmd/heatmap/app/config.go's flag.Var-plus-error-accumulation style:
// special-shaped flags implement flag.Value, every validation failure is
// collected and joined, and flag.Usage runs before the caller exits.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/wbscan/wbscan/internal/plan"
	"github.com/wbscan/wbscan/internal/publisher"
	"github.com/wbscan/wbscan/internal/radio"
)

// ErrInvalidConfig marks a configuration validation failure (spec §7's
// *configuration* error kind).
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the fully parsed and validated CLI configuration (spec §6).
type Config struct {
	Verbose bool

	DeviceName string
	ListDevices bool
	Channel    int
	GainDB     float64

	Plan plan.Config

	SingleSweep   bool
	SweepCount    int // 0 = continuous

	WebPort   int
	PublicDir string
	StorePath string
	Theme     publisher.ColorTheme

	// Catalog is the device capability catalog consulted by "-d help" and
	// for the hint logged when a device fails to open; it is not used as a
	// capability source for planning. Loaded from -catalog, or
	// radio.DefaultCatalog if that flag is unset.
	Catalog *radio.Catalog
}

// frequencyFlag implements flag.Value for spec §6's frequency literal
// grammar: <double>[kKmMgG].
type frequencyFlag struct {
	value *int64
	err   *error
}

func (f *frequencyFlag) String() string {
	if f.value == nil {
		return ""
	}
	return strconv.FormatInt(*f.value, 10)
}

func (f *frequencyFlag) Set(s string) error {
	v, err := ParseFrequency(s)
	if err != nil {
		*f.err = err
		return err
	}
	*f.value = v
	return nil
}

// ParseFrequency implements spec §6's and §8 property 9's
// frequency_from_str: <double>[kKmMgG] with kK=10^3, mM=10^6, gG=10^9, no
// suffix=1. Any other trailing character is rejected.
func ParseFrequency(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty frequency literal")
	}

	mult := 1.0
	numeric := s
	last := s[len(s)-1]
	switch last {
	case 'k', 'K':
		mult = 1e3
		numeric = s[:len(s)-1]
	case 'm', 'M':
		mult = 1e6
		numeric = s[:len(s)-1]
	case 'g', 'G':
		mult = 1e9
		numeric = s[:len(s)-1]
	default:
		if last < '0' || last > '9' {
			if last != '.' {
				return 0, fmt.Errorf("invalid frequency suffix in %q", s)
			}
		}
	}

	f, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frequency literal %q: %w", s, err)
	}
	return int64(f * mult), nil
}

// Parse parses args (normally os.Args[1:]) into a validated Config.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("wbscan", flag.ContinueOnError)

	cfg := &Config{}
	var (
		start, end, resolution, rateCap int64
		parseErr                        error
		cropRatio                       float64
		scanTime                        float64
		theme                           string
		catalogPath                     string
	)

	fs.BoolVar(&cfg.Verbose, "v", false, "verbose logging to stderr")
	fs.StringVar(&cfg.DeviceName, "d", "", "SDR device name; \"help\" lists devices")
	fs.IntVar(&cfg.Channel, "C", 0, "channel index")
	fs.Float64Var(&cfg.GainDB, "g", 0, "gain (dB)")
	fs.Var(&frequencyFlag{&start, &parseErr}, "s", "start frequency")
	fs.Var(&frequencyFlag{&end, &parseErr}, "e", "end frequency (auto if unset)")
	fs.Var(&frequencyFlag{&resolution, &parseErr}, "r", "frequency resolution (auto if unset)")
	fs.Var(&frequencyFlag{&rateCap, &parseErr}, "R", "sample-rate upper limit (unlimited if unset)")
	fs.Float64Var(&cropRatio, "c", 0.25, "crop ratio [0, 0.6]")
	fs.Float64Var(&scanTime, "t", 10, "scan wall-time seconds")
	fs.BoolVar(&cfg.SingleSweep, "1", false, "single sweep")
	fs.IntVar(&cfg.SweepCount, "l", 0, "sweep count (0 = continuous)")
	fs.IntVar(&cfg.WebPort, "w", 0, "HTTP publisher port (0 = disabled)")
	fs.StringVar(&cfg.PublicDir, "assets", "", "static file directory served at /")
	fs.StringVar(&cfg.StorePath, "o", "", "sqlite snapshot history path (disabled if unset)")
	fs.StringVar(&theme, "m", "classic", "heatmap color theme [classic, grayscale, thermal]")
	fs.StringVar(&catalogPath, "catalog", "", "device capability catalog YAML file (built-in catalog if unset)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if parseErr != nil {
		fs.Usage()
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, parseErr)
	}

	if catalogPath != "" {
		cat, err := radio.LoadCatalog(catalogPath)
		if err != nil {
			fs.Usage()
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		cfg.Catalog = cat
	} else {
		cfg.Catalog = &radio.DefaultCatalog
	}

	if cfg.DeviceName == "help" {
		cfg.ListDevices = true
		return cfg, nil
	}

	var errs []error
	if start == 0 {
		errs = append(errs, errors.New("-s start frequency is required"))
	}
	theme = strings.ToLower(theme)
	switch publisher.ColorTheme(theme) {
	case publisher.ClassicTheme, publisher.GrayscaleTheme, publisher.ThermalTheme:
		cfg.Theme = publisher.ColorTheme(theme)
	default:
		errs = append(errs, fmt.Errorf("invalid color theme: %s", theme))
	}
	if len(errs) > 0 {
		fs.Usage()
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	cfg.Plan = plan.Config{
		StartFrequency:         start,
		EndFrequency:           end,
		FrequencyResolution:    uint(resolution),
		RequestedSampleRateCap: uint(rateCap),
		CropRatio:              cropRatio,
		ScanTimeSeconds:        scanTime,
	}
	if cfg.SingleSweep {
		cfg.SweepCount = 1
	}
	return cfg, nil
}
