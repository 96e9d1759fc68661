package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/warthog618/go-gpiocdev"
)

const consumer = "cnc-control"

// CdevInput is an input line on a Linux GPIO character device.
type CdevInput struct {
	chip   string
	offset int
	name   string

	mu     sync.Mutex
	line   *gpiocdev.Line
	onEdge atomic.Pointer[func()]
}

func NewCdevInput(chip string, offset int, name string) *CdevInput {
	return &CdevInput{chip: chip, offset: offset, name: name}
}

func (c *CdevInput) Name() string         { return c.name }
func (c *CdevInput) IsBound() bool        { return true }
func (c *CdevInput) SupportsPullUp() bool { return true }

// Configure requests the line. With interrupt set, both edges are delivered
// to whatever OnEdge registers, before or after this call.
func (c *CdevInput) Configure(interrupt, pullUp bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.line != nil {
		c.line.Close()
		c.line = nil
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithConsumer(consumer)}
	if pullUp {
		opts = append(opts, gpiocdev.WithPullUp)
	}
	if interrupt {
		opts = append(opts, gpiocdev.WithBothEdges, gpiocdev.WithEventHandler(c.handle))
	}

	line, err := gpiocdev.RequestLine(c.chip, c.offset, opts...)
	if err != nil {
		return fmt.Errorf("request input %s (%s:%d): %w", c.name, c.chip, c.offset, err)
	}
	c.line = line
	return nil
}

func (c *CdevInput) handle(gpiocdev.LineEvent) {
	if fn := c.onEdge.Load(); fn != nil {
		(*fn)()
	}
}

func (c *CdevInput) OnEdge(fn func()) error {
	c.onEdge.Store(&fn)
	return nil
}

func (c *CdevInput) ReadLevel() bool {
	c.mu.Lock()
	line := c.line
	c.mu.Unlock()
	if line == nil {
		return false
	}
	v, err := line.Value()
	if err != nil {
		log.Warn().Err(err).Str("pin", c.name).Msg("Failed to read input level")
		return false
	}
	return v != 0
}

func (c *CdevInput) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.line == nil {
		return nil
	}
	err := c.line.Close()
	c.line = nil
	return err
}

// CdevOutput is an output line on a Linux GPIO character device.
type CdevOutput struct {
	name string
	line *gpiocdev.Line
}

// NewCdevOutput requests the line as an output driven inactive.
func NewCdevOutput(chip string, offset int, name string, activeLow bool) (*CdevOutput, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request output %s (%s:%d): %w", name, chip, offset, err)
	}
	return &CdevOutput{name: name, line: line}, nil
}

func (c *CdevOutput) Name() string  { return c.name }
func (c *CdevOutput) IsBound() bool { return true }

func (c *CdevOutput) Write(on bool) error {
	if SafeMode() {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	if err := c.line.SetValue(v); err != nil {
		return fmt.Errorf("write %s: %w", c.name, err)
	}
	return nil
}

func (c *CdevOutput) Close() error {
	return c.line.Close()
}
