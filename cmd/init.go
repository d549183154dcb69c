package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const exampleProgram = `PROGRAM Conveyor
VAR
    sensor0 AT %IX0.0: BOOL;
    sensor1 AT %IX0.1: BOOL;
    motor AT %QX0.0: BOOL;
END_VAR
IF sensor0 AND NOT sensor1 THEN
    motor := TRUE;
ELSE
    motor := FALSE;
END_IF
END_PROGRAM
`

const exampleConfig = `[addr]
input = 0x1000
output = 0x2000

[test]
ix0 = [0b01, 0b11]
qx0 = [0b1, 0b0]
`

// init: scaffold an example project
var InitCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Scaffold an example .st program with a config file",
	Args:  cobra.ExactArgs(1),
	RunE:  initRun,
}

func initRun(cmd *cobra.Command, args []string) error {
	name := args[0]
	fmt.Printf("↪ scaffolding %q ...\n", name)

	if err := os.MkdirAll(name, 0o755); err != nil {
		return err
	}
	stPath := filepath.Join(name, name+".st")
	cfgPath := filepath.Join(name, "cfg.toml")
	if err := os.WriteFile(stPath, []byte(exampleProgram), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(cfgPath, []byte(exampleConfig), 0o644); err != nil {
		return err
	}

	fmt.Printf("✔︎ wrote %s and %s\n", stPath, cfgPath)
	return nil
}
