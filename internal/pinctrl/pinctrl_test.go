package pinctrl

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGet(t *testing.T) {
	sample := `
 0: ip    pu | hi // ID_SDA/GPIO0 = input
 2: no    pu | -- // GPIO2 = none
 4: ip    pn | lo // GPIO4 = input
 5: op dh pu | hi // GPIO5 = output
12: op dh pd | hi // GPIO12 = output
26: op dl pn | lo // GPIO26 = output
not a pin line
`
	states, err := ParseGet(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Len(t, states, 6)

	assert.Equal(t, PinState{Pin: 5, Mode: "op", Pull: "pu", Drive: "dh", Level: "hi", Comment: "GPIO5 = output"}, states[5])
	assert.Equal(t, "--", states[2].Level)
	assert.Equal(t, "no", states[2].Mode)
	assert.Equal(t, "dl", states[26].Drive)
	assert.Equal(t, "pn", states[26].Pull)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"0", false},
		{"1", true},
		{"\n1\n", true},
		{"\n0\n", false},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.input)
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.expected, got, tc.input)
	}

	_, err := ParseLevel("x")
	assert.Error(t, err)
}

func TestReadLevel_UsesPinctrl(t *testing.T) {
	orig := run
	t.Cleanup(func() { run = orig })

	var gotArgs []string
	run = func(name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte("1\n"), nil
	}
	level, err := ReadLevel(17)
	require.NoError(t, err)
	assert.True(t, level)
	assert.Equal(t, []string{"pinctrl", "lev", "17"}, gotArgs)

	run = func(string, ...string) ([]byte, error) { return nil, errors.New("not found") }
	_, err = ReadAllPins()
	assert.ErrorContains(t, err, "failed to execute pinctrl get")
}
