package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/thatsimonsguy/cnc-control/internal/config"
	"github.com/thatsimonsguy/cnc-control/internal/model"
)

var runScript = func(path string) error {
	cmd := exec.Command("/bin/bash", path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// BootScript renders the shell script that parks every user digital output
// at its inactive level and configures control pins as pulled-up inputs
// before the controller starts.
func BootScript(cfg *config.Config) string {
	lines := []string{"#!/bin/bash", "", "# CNC GPIO pin configuration at boot", ""}

	for i, pin := range cfg.Outputs.Digital {
		if pin == nil {
			continue
		}
		drive := "dl"
		if pin.ActiveLow {
			drive = "dh"
		}
		lines = append(lines,
			fmt.Sprintf("# digital output %d (%s)", i, pin),
			fmt.Sprintf("pinctrl set %d op pn %s", pin.Line, drive),
			"")
	}

	controls := cfg.ControlPinList()
	for _, name := range sortedKeys(controls) {
		pin := controls[name]
		lines = append(lines,
			fmt.Sprintf("# control %s (%s)", name, pin),
			fmt.Sprintf("pinctrl set %d ip pu", pin.Line),
			"")
	}

	return strings.Join(lines, "\n") + "\n"
}

func WriteStartupScript(cfg *config.Config) error {
	if err := os.WriteFile(cfg.BootScriptFilePath, []byte(BootScript(cfg)), 0755); err != nil {
		return fmt.Errorf("writing boot script: %w", err)
	}
	return nil
}

func InstallStartupService(cfg *config.Config) error {
	unit := fmt.Sprintf(`[Unit]
Description=Configure CNC GPIO pins at boot
After=network.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, cfg.BootScriptFilePath)

	return os.WriteFile(cfg.OSServicePath, []byte(unit), 0644)
}

// InstallMainService writes the unit that runs the controller once pins are
// configured.
func InstallMainService(cfg *config.Config, user, execPath string) error {
	gpioUnit := filepath.Base(cfg.OSServicePath)

	args := []string{execPath, "--config-file", cfg.ConfigFile, "--db", cfg.DBPath}
	if cfg.LogFile != "" {
		args = append(args, "--log-file", cfg.LogFile)
	}

	unit := fmt.Sprintf(`[Unit]
Description=CNC control input service
After=%s
Requires=%s

[Service]
Type=simple
User=%s
ExecStart=%s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, gpioUnit, gpioUnit, user, strings.Join(args, " "))

	return os.WriteFile(cfg.MainServicePath, []byte(unit), 0644)
}

func RunStartupScript(cfg *config.Config) error {
	return runScript(cfg.BootScriptFilePath)
}

func sortedKeys(m map[string]model.GPIOPin) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
