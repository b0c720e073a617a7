package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// switchMode is the value of an auto|on|off flag such as --ui or --color.
type switchMode string

const (
	switchAuto switchMode = "auto"
	switchOn   switchMode = "on"
	switchOff  switchMode = "off"
)

func parseSwitch(flag, value string) (switchMode, error) {
	v := switchMode(strings.ToLower(strings.TrimSpace(value)))
	switch v {
	case "":
		return switchAuto, nil
	case switchAuto, switchOn, switchOff:
		return v, nil
	}
	return "", fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
}

// enabled resolves auto against whether stdout is a terminal.
func (m switchMode) enabled(tty bool) bool {
	if m == switchAuto {
		return tty
	}
	return m == switchOn
}

// setupColor applies --color to fatih/color. NO_COLOR turns off auto.
func setupColor(cmd *cobra.Command) error {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	mode, err := parseSwitch("color", value)
	if err != nil {
		return err
	}
	color.NoColor = !mode.enabled(isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == "")
	return nil
}
