package pwm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// Driver configures and drives hardware PWM channels. Duty is in units of
// 1/2^bits of the period.
type Driver interface {
	Setup(ch int, freq uint32, bits uint8) error
	Write(ch int, duty uint32) error
}

type channelConfig struct {
	periodNs uint64
	bits     uint8
}

// SysfsDriver drives channels of one Linux pwmchip through sysfs.
type SysfsDriver struct {
	root string

	mu       sync.Mutex
	channels map[int]channelConfig
}

// NewSysfsDriver uses /sys/class/pwm/pwmchip<chip>.
func NewSysfsDriver(chip int) *SysfsDriver {
	return NewSysfsDriverAt(fmt.Sprintf("/sys/class/pwm/pwmchip%d", chip))
}

func NewSysfsDriverAt(root string) *SysfsDriver {
	return &SysfsDriver{root: root, channels: map[int]channelConfig{}}
}

func (d *SysfsDriver) Setup(ch int, freq uint32, bits uint8) error {
	if freq == 0 {
		return ErrInvalidFrequency
	}
	dir := filepath.Join(d.root, fmt.Sprintf("pwm%d", ch))
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := writeAttr(filepath.Join(d.root, "export"), strconv.Itoa(ch)); err != nil {
			return fmt.Errorf("failed to export PWM channel %d: %w", ch, err)
		}
	}

	period := uint64(1_000_000_000) / uint64(freq)
	if err := writeAttr(filepath.Join(dir, "period"), strconv.FormatUint(period, 10)); err != nil {
		return err
	}
	if err := writeAttr(filepath.Join(dir, "duty_cycle"), "0"); err != nil {
		return err
	}
	if err := writeAttr(filepath.Join(dir, "enable"), "1"); err != nil {
		return err
	}

	d.mu.Lock()
	d.channels[ch] = channelConfig{periodNs: period, bits: bits}
	d.mu.Unlock()

	log.Debug().Int("channel", ch).Uint64("period_ns", period).Uint8("bits", bits).Msg("PWM channel set up")
	return nil
}

func (d *SysfsDriver) Write(ch int, duty uint32) error {
	d.mu.Lock()
	cfg, ok := d.channels[ch]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("PWM channel %d not set up", ch)
	}
	dutyNs := cfg.periodNs * uint64(duty) >> cfg.bits
	if dutyNs > cfg.periodNs {
		dutyNs = cfg.periodNs
	}
	return writeAttr(filepath.Join(d.root, fmt.Sprintf("pwm%d", ch), "duty_cycle"), strconv.FormatUint(dutyNs, 10))
}

func writeAttr(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(value); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SimDriver keeps channel state in memory.
type SimDriver struct {
	mu     sync.Mutex
	freqs  map[int]uint32
	bits   map[int]uint8
	duties map[int]uint32
	writes int
	err    error
}

func NewSimDriver() *SimDriver {
	return &SimDriver{freqs: map[int]uint32{}, bits: map[int]uint8{}, duties: map[int]uint32{}}
}

func (s *SimDriver) Setup(ch int, freq uint32, bits uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.freqs[ch] = freq
	s.bits[ch] = bits
	return nil
}

func (s *SimDriver) Write(ch int, duty uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.freqs[ch]; !ok {
		return fmt.Errorf("PWM channel %d not set up", ch)
	}
	s.duties[ch] = duty
	s.writes++
	return nil
}

// Fail makes every later call return err; nil restores normal operation.
func (s *SimDriver) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *SimDriver) Duty(ch int) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duties[ch]
}

func (s *SimDriver) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *SimDriver) Configured(ch int) (freq uint32, bits uint8, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	freq, ok = s.freqs[ch]
	return freq, s.bits[ch], ok
}
