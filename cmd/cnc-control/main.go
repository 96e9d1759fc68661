package main

import (
	"context"
	"fmt"
	"io"
	"os"

	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/thatsimonsguy/cnc-control/db"
	"github.com/thatsimonsguy/cnc-control/internal/api"
	"github.com/thatsimonsguy/cnc-control/internal/config"
	"github.com/thatsimonsguy/cnc-control/internal/control"
	"github.com/thatsimonsguy/cnc-control/internal/datadog"
	"github.com/thatsimonsguy/cnc-control/internal/execstate"
	"github.com/thatsimonsguy/cnc-control/internal/gpio"
	"github.com/thatsimonsguy/cnc-control/internal/journal"
	"github.com/thatsimonsguy/cnc-control/internal/logging"
	"github.com/thatsimonsguy/cnc-control/internal/motion"
	"github.com/thatsimonsguy/cnc-control/internal/notifications"
	"github.com/thatsimonsguy/cnc-control/internal/outputs"
	"github.com/thatsimonsguy/cnc-control/internal/pwm"
	"github.com/thatsimonsguy/cnc-control/internal/realtime"
	"github.com/thatsimonsguy/cnc-control/system/reset"
	"github.com/thatsimonsguy/cnc-control/system/shutdown"
)

var signalsByName = map[string]control.Signal{
	"safety_door": control.SafetyDoor,
	"reset":       control.Reset,
	"feed_hold":   control.FeedHold,
	"cycle_start": control.CycleStart,
	"macro0":      control.Macro0,
	"macro1":      control.Macro1,
	"macro2":      control.Macro2,
	"macro3":      control.Macro3,
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		Exitf("Failed to load configuration: %v\n", err)
	}
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Bool("sim", cfg.Sim).
		Msg("Starting CNC control")

	gpio.SetSafeMode(cfg.SafeMode)
	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED: output writes are disabled system-wide")
	}

	datadog.InitMetrics(cfg.Datadog.Addr, cfg.Datadog.Namespace, cfg.Datadog.Tags)
	notifications.Init(cfg.NtfyTopic)
	sink := logging.MultiSink{logging.NewLogSink("cnc"), notifications.Sink{Title: "cnc-control"}}

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		Exitf("Failed to open journal database: %v\n", err)
	}
	defer conn.Close()
	jr := journal.New(conn, journal.DefaultBuffer)

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	state := execstate.New()
	queue := motion.NewQueue()

	// Outputs
	outCfg, outClosers, err := buildOutputs(cfg)
	closers = append(closers, outClosers...)
	if err != nil {
		Exitf("Failed to bind user outputs: %v\n", err)
	}
	var driver pwm.Driver = pwm.NewSysfsDriver(cfg.Outputs.PWMChip)
	if cfg.Sim {
		driver = pwm.NewSimDriver()
	}
	mgr := outputs.NewManager(outCfg, pwm.NewAllocator(sink), driver, queue, sink)
	mgr.SetRecorder(jr)
	if err := mgr.Init(); err != nil {
		log.Warn().Err(err).Msg("Some analog outputs are unavailable")
	}
	shutdown.Init(mgr)

	// Control inputs
	resetter := reset.New(state, func() bool { return queue.Pending() > 0 })
	pins, inClosers := buildControlPins(cfg)
	closers = append(closers, inClosers...)
	mode, err := control.ParseMode(cfg.Control.Mode)
	if err != nil {
		Exitf("%v\n", err)
	}
	ctrl := control.New(control.Config{
		Pins:     pins,
		Invert:   control.SignalSet(cfg.Control.InvertMask),
		Mode:     mode,
		Settle:   cfg.DebouncePeriod(),
		Recorder: jr,
	}, state, resetter, sink)
	if err := ctrl.Init(); err != nil {
		shutdown.ShutdownWithError(err, "Failed to configure control pins")
	}
	if ctrl.SafetyDoorAjar() {
		log.Warn().Msg("Safety door is open at startup")
		state.Exec.Set(execstate.ExecSafetyDoor)
	}

	loop := realtime.New(state, cfg.PollInterval())
	loop.Handle(execstate.ExecReset, reset.Handler(mgr, queue))
	loop.HandleMotionRequests(ctrl.SafetyDoorAjar)
	loop.Handle(execstate.ExecStatusReport, func() {
		st := state.Snapshot()
		log.Info().
			Str("exec", st.ExecFlags).
			Str("alarm", st.AlarmFlags).
			Floats64("mpos", cfg.Axes.Mpos(st.Position)).
			Msg("Status report")
	})

	server := api.NewServer(conn, state, ctrl, mgr, resetter, cfg.Axes)

	// Prepare to shutdown in a controlled manner
	ctx, cancel := context.WithCancel(context.Background())
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		log.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	err = runTasks(ctx, jr, shutdown.OutputsOffNow,
		ctrl.Run,
		loop.Run,
		func(ctx context.Context) error { return server.Start(ctx, cfg.APIPort) },
	)
	if err != nil {
		log.Error().Err(err).Msg("Service run failed")
		notifications.Send("cnc-control stopped", err.Error())
		os.Exit(1)
	}
	log.Info().Msg("CNC control stopped")
}

// runTasks runs tasks until one fails or ctx is done. Outputs are turned off
// before the journal stops so the final commands are recorded.
func runTasks(ctx context.Context, jr *journal.Journal, outputsOff func(), tasks ...func(context.Context) error) error {
	journalCtx, stopJournal := context.WithCancel(context.Background())
	journalDone := make(chan error, 1)
	go func() { journalDone <- jr.Run(journalCtx) }()

	g, ctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		g.Go(func() error { return task(ctx) })
	}
	err := g.Wait()

	outputsOff()
	stopJournal()
	if jerr := <-journalDone; jerr != nil && err == nil {
		err = jerr
	}
	return err
}

func buildOutputs(cfg *config.Config) (outputs.Config, []io.Closer, error) {
	var out outputs.Config
	var closers []io.Closer

	lines := map[string]int{}
	activeLow := map[string]bool{}
	for i, pin := range cfg.Outputs.Digital {
		out.Digital[i] = gpio.Unbound
		if pin == nil {
			continue
		}
		name := fmt.Sprintf("digital%d", i)
		if cfg.Sim {
			out.Digital[i] = gpio.NewSimOutput(name)
			continue
		}
		lines[name] = pin.Line
		activeLow[name] = pin.ActiveLow
	}

	if !cfg.Sim && len(lines) > 0 {
		if err := gpio.ValidateOutputsIdle(lines, activeLow); err != nil {
			return out, nil, fmt.Errorf("refusing to drive user outputs: %w", err)
		}
		for i, pin := range cfg.Outputs.Digital {
			if pin == nil {
				continue
			}
			o, err := gpio.NewCdevOutput(pin.Chip, pin.Line, fmt.Sprintf("digital%d", i), pin.ActiveLow)
			if err != nil {
				return out, closers, err
			}
			closers = append(closers, o)
			out.Digital[i] = o
		}
	}

	for i, a := range cfg.Outputs.Analog {
		out.Analog[i] = outputs.AnalogConfig{Pin: a.Pin, Frequency: a.FrequencyHz}
	}
	return out, closers, nil
}

func buildControlPins(cfg *config.Config) (map[control.Signal]gpio.Input, []io.Closer) {
	pins := map[control.Signal]gpio.Input{}
	var closers []io.Closer
	for name, pin := range cfg.ControlPinList() {
		sig := signalsByName[name]
		if cfg.Sim {
			pins[sig] = gpio.NewSimInput(name, true)
			continue
		}
		in := gpio.NewCdevInput(pin.Chip, pin.Line, name)
		closers = append(closers, in)
		pins[sig] = in
	}
	return pins, closers
}

// Exitf prints the given error message and exits with code 1.
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
