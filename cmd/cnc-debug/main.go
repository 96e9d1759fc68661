package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/thatsimonsguy/cnc-control/db"
	"github.com/thatsimonsguy/cnc-control/internal/config"
	"github.com/thatsimonsguy/cnc-control/internal/pinctrl"
	"github.com/thatsimonsguy/cnc-control/system/startup"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var dbPath, command, configFile, before, user, execPath string
	var limit int
	pflag.StringVar(&dbPath, "db", "data/journal.db", "Path to the event journal database")
	pflag.StringVar(&command, "cmd", "", "Command to run: events, outputs, pins, boot-script, install-service, prune")
	pflag.StringVar(&configFile, "config-file", "config.json", "Controller config file for boot-script and install-service")
	pflag.IntVar(&limit, "limit", 20, "Number of journal rows to show")
	pflag.StringVar(&before, "before", "", "Prune journal rows older than this duration (e.g. 720h)")
	pflag.StringVar(&user, "user", "cnc", "User the controller service runs as")
	pflag.StringVar(&execPath, "exec", "/usr/local/bin/cnc-control", "Path of the controller binary")
	help := pflag.Bool("help", false, "Show help")
	pflag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of cnc-debug:")
		pflag.PrintDefaults()
		os.Exit(0)
	}

	var err error
	switch command {
	case "events":
		err = showEvents(dbPath, limit)
	case "outputs":
		err = showOutputs(dbPath, limit)
	case "pins":
		err = showPins()
	case "boot-script":
		var cfg *config.Config
		if cfg, err = config.Load([]string{"--config-file", configFile}); err == nil {
			fmt.Print(startup.BootScript(cfg))
		}
	case "install-service":
		err = installService(configFile, dbPath, user, execPath)
	case "prune":
		err = prune(dbPath, before)
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
}

func showEvents(dbPath string, limit int) error {
	events, err := db.RecentControlEventsCLI(dbPath, limit)
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Printf("%-6d %-16s %-12s triggered=0x%02x\n", e.ID, humanize.Time(e.At), e.Signal, e.Triggered)
	}
	return nil
}

func showOutputs(dbPath string, limit int) error {
	cmds, err := db.RecentOutputCommandsCLI(dbPath, limit)
	if err != nil {
		return err
	}
	for _, c := range cmds {
		result := "ok"
		if !c.OK {
			result = c.Error
		}
		fmt.Printf("%-6d %-16s %-8s mask=0x%x value=%g sync=%t %s\n",
			c.ID, humanize.Time(c.At), c.Kind, c.Mask, c.Value, c.Synchronized, result)
	}
	return nil
}

func showPins() error {
	pins, err := pinctrl.ReadAllPins()
	if err != nil {
		return err
	}
	numbers := make([]int, 0, len(pins))
	for n := range pins {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		p := pins[n]
		fmt.Printf("GPIO%-3d %-3s %-3s %-3s level=%s\n", n, p.Mode, p.Pull, p.Drive, p.Level)
	}
	return nil
}

func installService(configFile, dbPath, user, execPath string) error {
	cfg, err := config.Load([]string{"--config-file", configFile, "--db", dbPath})
	if err != nil {
		return err
	}
	if err := startup.WriteStartupScript(cfg); err != nil {
		return err
	}
	if err := startup.InstallStartupService(cfg); err != nil {
		return err
	}
	if err := startup.InstallMainService(cfg, user, execPath); err != nil {
		return err
	}
	fmt.Printf("Installed %s, %s and %s\n", cfg.BootScriptFilePath, cfg.OSServicePath, cfg.MainServicePath)
	return nil
}

func prune(dbPath, before string) error {
	age, err := time.ParseDuration(before)
	if err != nil {
		return fmt.Errorf("invalid --before: %w", err)
	}
	cutoff := time.Now().Add(-age)
	n, err := db.PruneCLI(dbPath, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %s journal rows older than %s\n", humanize.Comma(n), humanize.Time(cutoff))
	return nil
}
