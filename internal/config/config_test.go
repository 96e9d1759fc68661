package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/cnc-control/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `{
		"control": {
			"pins": {
				"safety_door": {"chip": "gpiochip0", "line": 5},
				"reset": {"chip": "gpiochip0", "line": 6}
			},
			"invert_mask": 1
		},
		"outputs": {
			"digital": [{"chip": "gpiochip0", "line": 17}],
			"analog": [{"pin": "pwm0"}]
		},
		"axes": {"steps_per_mm": [80, 80, 400]}
	}`)

	cfg, err := Load([]string{"--config-file", path, "--log-level", "debug", "--sim"})
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.True(t, cfg.Sim)
	assert.False(t, cfg.SafeMode)
	assert.Equal(t, DefaultAPIPort, cfg.APIPort)
	assert.Equal(t, 32*time.Millisecond, cfg.DebouncePeriod())
	assert.Equal(t, 10*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, uint8(1), cfg.Control.InvertMask)
	assert.Equal(t, uint32(DefaultAnalogFrequency), cfg.Outputs.Analog[0].FrequencyHz)
	assert.Equal(t, uint32(0), cfg.Outputs.Analog[1].FrequencyHz, "undefined outputs keep no frequency")
	assert.Nil(t, cfg.Outputs.Digital[1])
	assert.Equal(t, []float64{80, 80, 400}, cfg.Axes.StepsPerMM)

	assert.Equal(t, map[string]model.GPIOPin{
		"safety_door": {Chip: "gpiochip0", Line: 5},
		"reset":       {Chip: "gpiochip0", Line: 6},
	}, cfg.ControlPinList())
}

func TestLoad_PinConflict(t *testing.T) {
	path := writeConfig(t, `{
		"control": {"pins": {"feed_hold": {"chip": "gpiochip0", "line": 5}}},
		"outputs": {"digital": [{"chip": "gpiochip0", "line": 5}]}
	}`)

	_, err := Load([]string{"--config-file", path})
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorContains(t, err, "outputs.digital[0] and control.pins.feed_hold both use pin gpiochip0:5")
}

func TestLoad_SameLineDifferentChip(t *testing.T) {
	path := writeConfig(t, `{
		"control": {"pins": {
			"macro0": {"chip": "gpiochip0", "line": 5},
			"macro1": {"chip": "gpiochip1", "line": 5}
		}}
	}`)

	_, err := Load([]string{"--config-file", path})
	assert.NoError(t, err)
}

func TestLoad_InvalidMode(t *testing.T) {
	path := writeConfig(t, `{"control": {"mode": "sometimes"}}`)

	_, err := Load([]string{"--config-file", path})
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorContains(t, err, `control.mode "sometimes"`)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load([]string{"--config-file", filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorContains(t, err, "failed to load config file")

	_, err = Load([]string{"--config-file", writeConfig(t, `{not json`)})
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = Load([]string{"--no-such-flag"})
	assert.ErrorIs(t, err, ErrConfig)
}
