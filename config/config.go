// Package config loads SmartMirror's daemon configuration from flags
// and environment variables via viper/pflag, plus the quiet-hours
// schedule from a JSON document.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"smartmirror.dev/policy"
	"smartmirror.dev/smarterr"
)

// Config is every environment-backed option named in the external
// interfaces contract.
type Config struct {
	LogLevel     string
	LogToConsole bool
	LogToFile    bool
	LogFilePath  string
	UARTDebug    bool

	GPIOChipPath       string
	GPIOPowerStatusPin int
	GPIOIRInputPin     int

	CameraWidth       int
	CameraHeight      int
	MotionWidth       int
	MotionHeight      int
	MotionThreshold   int
	MotionCooldownSec int

	UARTPort     string
	UARTBaudRate int

	DisplayPolicyTimeout int

	ScheduleJSON string

	HTTPAddr string
}

// Defaults mirrors the deployment defaults named in the external
// interfaces contract.
var Defaults = Config{
	LogLevel:     "info",
	LogToConsole: true,
	LogToFile:    false,
	LogFilePath:  "/var/log/smartmirrord.log",
	UARTDebug:    false,

	GPIOChipPath:       "/dev/gpiochip0",
	GPIOPowerStatusPin: 23,
	GPIOIRInputPin:     27,

	CameraWidth:       640,
	CameraHeight:      480,
	MotionWidth:       320,
	MotionHeight:      240,
	MotionThreshold:   150,
	MotionCooldownSec: 6,

	UARTPort:     "/dev/serial0",
	UARTBaudRate: 115200,

	DisplayPolicyTimeout: 15,

	ScheduleJSON: `{"quiet_hours": [{"start": "23:00", "end": "06:00"}]}`,

	HTTPAddr: ":8080",
}

// Load reads flags and environment variables into a Config, layered
// over Defaults. Each option binds both its SMARTMIRROR_-prefixed
// form and the bare name from the external interfaces contract (e.g.
// GPIO_CHIP_PATH), so either works.
func Load(args []string) (Config, error) {
	fs := pflag.NewFlagSet("smartmirrord", pflag.ContinueOnError)
	fs.String("log-level", Defaults.LogLevel, "log level")
	fs.Bool("log-to-console", Defaults.LogToConsole, "log to stderr")
	fs.Bool("log-to-file", Defaults.LogToFile, "log to a file")
	fs.String("log-file-path", Defaults.LogFilePath, "log file path")
	fs.Bool("uart-debug", Defaults.UARTDebug, "log every inbound UART line")

	fs.String("gpio-chip-path", Defaults.GPIOChipPath, "GPIO chardev path")
	fs.Int("gpio-power-status-pin", Defaults.GPIOPowerStatusPin, "power status line offset")
	fs.Int("gpio-ir-input-pin", Defaults.GPIOIRInputPin, "IR output line offset")

	fs.Int("camera-width", Defaults.CameraWidth, "camera capture width")
	fs.Int("camera-height", Defaults.CameraHeight, "camera capture height")
	fs.Int("motion-width", Defaults.MotionWidth, "motion analysis width")
	fs.Int("motion-height", Defaults.MotionHeight, "motion analysis height")
	fs.Int("motion-threshold", Defaults.MotionThreshold, "changed-pixel count that counts as motion")
	fs.Int("motion-cooldown-sec", Defaults.MotionCooldownSec, "seconds between motion events")

	fs.String("uart-port", Defaults.UARTPort, "UART device path")
	fs.Int("uart-baudrate", Defaults.UARTBaudRate, "UART baud rate")

	fs.Int("display-policy-timeout", Defaults.DisplayPolicyTimeout, "re-mute delay in seconds")

	fs.String("schedule-json", Defaults.ScheduleJSON, "quiet-hours schedule JSON")
	fs.String("schedule-file", "", "path to quiet-hours schedule JSON file, overrides schedule-json")
	fs.String("http-addr", Defaults.HTTPAddr, "HTTP remote listen address")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: parse flags: %w", smarterr.ErrConfig)
	}

	v := viper.New()
	v.SetEnvPrefix("SMARTMIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("config: bind flags: %w", smarterr.ErrConfig)
	}

	// §6 names these as bare, unprefixed environment variables (the
	// original daemon read os.getenv("LOG_LEVEL") etc. directly); alias
	// each flag to its bare name alongside the SMARTMIRROR_-prefixed
	// form AutomaticEnv already derives.
	bareNames := map[string]string{
		"log-level":              "LOG_LEVEL",
		"log-to-console":         "LOG_TO_CONSOLE",
		"log-to-file":            "LOG_TO_FILE",
		"log-file-path":          "LOG_FILE_PATH",
		"uart-debug":             "UART_DEBUG",
		"gpio-chip-path":         "GPIO_CHIP_PATH",
		"gpio-power-status-pin":  "GPIO_POWER_STATUS_PIN",
		"gpio-ir-input-pin":      "GPIO_IR_INPUT_PIN",
		"camera-width":           "CAMERA_WIDTH",
		"camera-height":          "CAMERA_HEIGHT",
		"motion-width":           "MOTION_WIDTH",
		"motion-height":          "MOTION_HEIGHT",
		"motion-threshold":       "MOTION_THRESHOLD",
		"motion-cooldown-sec":    "MOTION_COOLDOWN_SEC",
		"uart-port":              "UART_PORT",
		"uart-baudrate":          "UART_BAUDRATE",
		"display-policy-timeout": "DISPLAY_POLICY_TIMEOUT",
		"schedule-json":          "SCHEDULE_JSON",
		"schedule-file":          "SCHEDULE_FILE",
	}
	for flagName, bareName := range bareNames {
		if err := v.BindEnv(flagName, "SMARTMIRROR_"+bareName, bareName); err != nil {
			return Config{}, fmt.Errorf("config: bind env %s: %w", bareName, smarterr.ErrConfig)
		}
	}

	scheduleJSON := v.GetString("schedule-json")
	if path := v.GetString("schedule-file"); path != "" {
		doc, err := ReadScheduleFile(path)
		if err != nil {
			return Config{}, err
		}
		scheduleJSON = doc
	}

	return Config{
		LogLevel:     v.GetString("log-level"),
		LogToConsole: v.GetBool("log-to-console"),
		LogToFile:    v.GetBool("log-to-file"),
		LogFilePath:  v.GetString("log-file-path"),
		UARTDebug:    v.GetBool("uart-debug"),

		GPIOChipPath:       v.GetString("gpio-chip-path"),
		GPIOPowerStatusPin: v.GetInt("gpio-power-status-pin"),
		GPIOIRInputPin:     v.GetInt("gpio-ir-input-pin"),

		CameraWidth:       v.GetInt("camera-width"),
		CameraHeight:      v.GetInt("camera-height"),
		MotionWidth:       v.GetInt("motion-width"),
		MotionHeight:      v.GetInt("motion-height"),
		MotionThreshold:   v.GetInt("motion-threshold"),
		MotionCooldownSec: v.GetInt("motion-cooldown-sec"),

		UARTPort:     v.GetString("uart-port"),
		UARTBaudRate: v.GetInt("uart-baudrate"),

		DisplayPolicyTimeout: v.GetInt("display-policy-timeout"),

		ScheduleJSON: scheduleJSON,
		HTTPAddr:     v.GetString("http-addr"),
	}, nil
}

type scheduleDoc struct {
	QuietHours []struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"quiet_hours"`
}

// ParseSchedule decodes the quiet-hours schedule JSON named by
// ScheduleJSON into a policy.QuietHoursSchedule.
func (c Config) ParseSchedule() (*policy.QuietHoursSchedule, error) {
	var doc scheduleDoc
	if err := json.Unmarshal([]byte(c.ScheduleJSON), &doc); err != nil {
		return nil, fmt.Errorf("config: parse schedule json: %w", smarterr.ErrConfig)
	}
	windows := make([]policy.Window, 0, len(doc.QuietHours))
	for _, w := range doc.QuietHours {
		start, err := policy.ParseHHMM(w.Start)
		if err != nil {
			return nil, err
		}
		end, err := policy.ParseHHMM(w.End)
		if err != nil {
			return nil, err
		}
		windows = append(windows, policy.Window{StartMinute: start, EndMinute: end})
	}
	return policy.NewQuietHoursSchedule(windows), nil
}

// RemuteDelay returns DisplayPolicyTimeout as a time.Duration.
func (c Config) RemuteDelay() time.Duration {
	return time.Duration(c.DisplayPolicyTimeout) * time.Second
}

// UARTReadTimeout is the fixed transport read timeout named in the
// external interfaces contract; it is not user-configurable.
const UARTReadTimeout = 100 * time.Millisecond

// ReadScheduleFile loads schedule JSON from a file path. An empty path
// returns an empty document; callers should keep the flag/env value
// in that case.
func ReadScheduleFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: read schedule file: %w", smarterr.ErrConfig)
	}
	return string(b), nil
}
