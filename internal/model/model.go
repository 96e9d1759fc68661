package model

import (
	"strconv"
	"time"
)

// GPIOPin identifies a line on a GPIO character device.
type GPIOPin struct {
	Chip      string `json:"chip"`
	Line      int    `json:"line"`
	ActiveLow bool   `json:"active_low,omitempty"`
}

func (p GPIOPin) String() string {
	return p.Chip + ":" + strconv.Itoa(p.Line)
}

// ControlEvent is one dispatched control signal.
type ControlEvent struct {
	ID        int64     `json:"id"`
	At        time.Time `json:"at"`
	Triggered uint8     `json:"triggered"`
	Signal    string    `json:"signal"`
}

// OutputCommand is one bulk user output command and its outcome.
type OutputCommand struct {
	ID           int64     `json:"id"`
	At           time.Time `json:"at"`
	Kind         string    `json:"kind"`
	Mask         uint8     `json:"mask"`
	Value        float64   `json:"value"`
	Synchronized bool      `json:"synchronized"`
	OK           bool      `json:"ok"`
	Error        string    `json:"error,omitempty"`
}
