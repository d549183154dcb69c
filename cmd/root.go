package cmd

import (
	"github.com/spf13/cobra"
)

var (
	outDir  string
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "st2cc",
	Short: "st2cc — Structured Text to C compiler",
	Long: `st2cc compiles IEC 61131-3 Structured Text programs into portable C
for embedded/PLC-class targets with memory-mapped I/O.

Commands:
  init   Scaffold an example .st program with a config file
  build  Compile a (.st) Structured Text source file into (.c) C
  check  Run diagnostics without writing output
`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outDir, "out", "o", "out", "output directory for build artifacts")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "cfg", "", "TOML config file with [addr] and [test] tables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print the parsed AST")

	rootCmd.AddCommand(InitCmd, BuildCmd, CheckCmd)
}
