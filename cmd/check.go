package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plctools/st2cc/internal/compiler"
)

// check: diagnostics only, no output file
var CheckCmd = &cobra.Command{
	Use:   "check <source.st>",
	Short: "Run lexical, syntax and semantic diagnostics without emitting C",
	Args:  cobra.ExactArgs(1),
	RunE:  checkRun,
}

func checkRun(cmd *cobra.Command, args []string) error {
	srcPath := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	src, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}

	diags, warnings := compiler.Check(string(src), cfg)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "%s: warning: %s\n", srcPath, w)
	}
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s:%s\n", srcPath, d)
		}
		return fmt.Errorf("%d error(s)", len(diags))
	}

	fmt.Printf("✔︎ %s: no errors\n", srcPath)
	return nil
}
