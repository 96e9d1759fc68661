package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/thatsimonsguy/cnc-control/internal/kinematics"
	"github.com/thatsimonsguy/cnc-control/internal/model"
)

var ErrConfig = errors.New("invalid configuration")

const (
	DefaultDebouncePeriodMS = 32
	DefaultPollIntervalMS   = 10
	DefaultAnalogFrequency  = 5000
	DefaultAPIPort          = 8080
)

// ControlPins binds the control signals. Absent pins are undefined signals.
type ControlPins struct {
	SafetyDoor *model.GPIOPin `json:"safety_door"`
	Reset      *model.GPIOPin `json:"reset"`
	FeedHold   *model.GPIOPin `json:"feed_hold"`
	CycleStart *model.GPIOPin `json:"cycle_start"`
	Macro0     *model.GPIOPin `json:"macro0"`
	Macro1     *model.GPIOPin `json:"macro1"`
	Macro2     *model.GPIOPin `json:"macro2"`
	Macro3     *model.GPIOPin `json:"macro3"`
}

type Control struct {
	Pins             ControlPins `json:"pins"`
	InvertMask       uint8       `json:"invert_mask"`
	Mode             string      `json:"mode"`
	DebouncePeriodMS int         `json:"debounce_period_ms"`
}

type AnalogOutput struct {
	Pin         string `json:"pin"`
	FrequencyHz uint32 `json:"frequency_hz"`
}

type Outputs struct {
	Digital [4]*model.GPIOPin `json:"digital"`
	Analog  [4]AnalogOutput   `json:"analog"`
	PWMChip int               `json:"pwm_chip"`
}

type Datadog struct {
	Addr      string   `json:"addr"`
	Namespace string   `json:"namespace"`
	Tags      []string `json:"tags"`
}

type Config struct {
	ConfigFile string        `json:"-"`
	DBPath     string        `json:"-"`
	LogFile    string        `json:"-"`
	LogLevel   zerolog.Level `json:"-"`
	SafeMode   bool          `json:"-"`
	Sim        bool          `json:"-"`
	APIPort    int           `json:"-"`

	Control        Control         `json:"control"`
	Outputs        Outputs         `json:"outputs"`
	Axes           kinematics.Axes `json:"axes"`
	PollIntervalMS int             `json:"poll_interval_ms"`
	Datadog        Datadog         `json:"datadog"`
	NtfyTopic      string          `json:"ntfy_topic"`

	BootScriptFilePath string `json:"boot_script_file_path"`
	OSServicePath      string `json:"os_service_path"`
	MainServicePath    string `json:"main_service_path"`
}

// Load parses command line flags and then the JSON config file they name.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	var logLevel string

	fs := pflag.NewFlagSet("cnc-control", pflag.ContinueOnError)
	fs.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to controller config file")
	fs.StringVar(&cfg.DBPath, "db", "data/journal.db", "Path to the event journal database")
	fs.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Log to this file instead of stderr")
	fs.BoolVar(&cfg.SafeMode, "safe-mode", false, "Suppress all hardware output writes")
	fs.BoolVar(&cfg.Sim, "sim", false, "Use simulated pins and PWM instead of hardware")
	fs.IntVar(&cfg.APIPort, "api-port", DefaultAPIPort, "Port of the status API")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfig, err)
	}

	cfg.LogLevel = parseLogLevel(logLevel)

	file, err := os.Open(cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Control.DebouncePeriodMS == 0 {
		cfg.Control.DebouncePeriodMS = DefaultDebouncePeriodMS
	}
	if cfg.PollIntervalMS == 0 {
		cfg.PollIntervalMS = DefaultPollIntervalMS
	}
	for i := range cfg.Outputs.Analog {
		if cfg.Outputs.Analog[i].Pin != "" && cfg.Outputs.Analog[i].FrequencyHz == 0 {
			cfg.Outputs.Analog[i].FrequencyHz = DefaultAnalogFrequency
		}
	}
	if cfg.BootScriptFilePath == "" {
		cfg.BootScriptFilePath = "/usr/local/bin/cnc-gpio-init.sh"
	}
	if cfg.OSServicePath == "" {
		cfg.OSServicePath = "/etc/systemd/system/cnc-gpio-init.service"
	}
	if cfg.MainServicePath == "" {
		cfg.MainServicePath = "/etc/systemd/system/cnc-control.service"
	}
}

func (cfg *Config) DebouncePeriod() time.Duration {
	return time.Duration(cfg.Control.DebouncePeriodMS) * time.Millisecond
}

func (cfg *Config) PollInterval() time.Duration {
	return time.Duration(cfg.PollIntervalMS) * time.Millisecond
}

func (cfg *Config) validate() error {
	var (
		usedPins  = map[string]string{}
		conflicts []string
	)
	claim := func(name string, pin *model.GPIOPin) {
		if pin == nil {
			return
		}
		key := pin.String()
		if other, exists := usedPins[key]; exists {
			conflicts = append(conflicts, fmt.Sprintf("%s and %s both use pin %s", name, other, key))
		} else {
			usedPins[key] = name
		}
	}

	v := reflect.ValueOf(cfg.Control.Pins)
	t := reflect.TypeOf(cfg.Control.Pins)
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.IsNil() {
			continue
		}
		claim("control.pins."+t.Field(i).Tag.Get("json"), field.Interface().(*model.GPIOPin))
	}
	for i, pin := range cfg.Outputs.Digital {
		claim(fmt.Sprintf("outputs.digital[%d]", i), pin)
	}

	var problems []string
	if len(conflicts) > 0 {
		problems = append(problems, "conflicting GPIO pins: "+strings.Join(conflicts, ", "))
	}
	if cfg.Control.DebouncePeriodMS < 0 {
		problems = append(problems, "control.debounce_period_ms must not be negative")
	}
	switch cfg.Control.Mode {
	case "", "debounced", "immediate":
	default:
		problems = append(problems, fmt.Sprintf("control.mode %q must be debounced or immediate", cfg.Control.Mode))
	}
	if cfg.PollIntervalMS < 0 {
		problems = append(problems, "poll_interval_ms must not be negative")
	}
	if n := len(cfg.Axes.StepsPerMM); n > 6 {
		problems = append(problems, fmt.Sprintf("axes.steps_per_mm lists %d axes, at most 6 are supported", n))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ControlPinList returns the defined control pins keyed by their json name.
func (cfg *Config) ControlPinList() map[string]model.GPIOPin {
	out := map[string]model.GPIOPin{}
	v := reflect.ValueOf(cfg.Control.Pins)
	t := reflect.TypeOf(cfg.Control.Pins)
	for i := 0; i < v.NumField(); i++ {
		if pin, ok := v.Field(i).Interface().(*model.GPIOPin); ok && pin != nil {
			out[t.Field(i).Tag.Get("json")] = *pin
		}
	}
	return out
}
