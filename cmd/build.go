package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plctools/st2cc/internal/compiler"
	"github.com/plctools/st2cc/internal/compiler/config"
)

// build: compile .st -> .c
var BuildCmd = &cobra.Command{
	Use:   "build <source.st>",
	Short: "Compile a Structured Text source file into C",
	Args:  cobra.ExactArgs(1),
	RunE:  buildRun,
}

func buildRun(cmd *cobra.Command, args []string) error {
	src := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if verbose {
		if err := dumpAST(src); err != nil {
			return err
		}
	}

	fmt.Printf("↪ building %q → %q ...\n", src, outDir+"/")

	outFile, err := compiler.CompileAndWrite(src, outDir, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("✔︎ wrote C to %s\n", outFile)
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}

func dumpAST(srcPath string) error {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	prog, diags := compiler.ParseOnly(string(src))
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s:%s\n", srcPath, d)
		}
		return fmt.Errorf("parsing failed")
	}
	fmt.Println("-------- parser output --------")
	fmt.Print(prog.String())
	fmt.Println("-------------------------------")
	return nil
}
