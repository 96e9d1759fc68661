package shutdown

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// OutputsOff drives every user output to its idle level.
type OutputsOff interface {
	AllOff(ctx context.Context) error
}

var (
	mu      sync.Mutex
	outputs OutputsOff

	exit = os.Exit
)

// Init registers the outputs to turn off before the process exits.
func Init(o OutputsOff) {
	mu.Lock()
	outputs = o
	mu.Unlock()
}

// OutputsOffNow turns off every user output without exiting.
func OutputsOffNow() {
	mu.Lock()
	o := outputs
	mu.Unlock()
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.AllOff(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to turn off user outputs")
		return
	}
	log.Info().Msg("User outputs deactivated")
}

func Shutdown() {
	OutputsOffNow()
	exit(0)
}

func ShutdownWithError(err error, msg string) {
	log.Error().Err(err).Msg(msg)
	OutputsOffNow()
	exit(1)
}
