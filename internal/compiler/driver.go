package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/plctools/st2cc/internal/compiler/analyzer"
	"github.com/plctools/st2cc/internal/compiler/ast"
	"github.com/plctools/st2cc/internal/compiler/config"
	"github.com/plctools/st2cc/internal/compiler/diag"
	"github.com/plctools/st2cc/internal/compiler/emitter"
	"github.com/plctools/st2cc/internal/compiler/lexer"
	"github.com/plctools/st2cc/internal/compiler/parser"
)

// Compile runs the full pipeline on in-memory source text: tokens, AST,
// annotated AST, C text. On success the C translation unit is returned with
// an empty diagnostic list; on failure the C text is empty and the list is
// ordered by source position. The core performs no I/O and never prints.
func Compile(src string, cfg *config.Config) (string, []diag.Diagnostic) {
	c, _, _, diags := run(src, cfg)
	return c, diags
}

// Check runs the pipeline without emitting and additionally validates the
// config's [test] vectors against the program's claimed I/O cells. The
// second return value holds non-fatal warnings.
func Check(src string, cfg *config.Config) ([]diag.Diagnostic, []string) {
	if cfg == nil {
		cfg = config.Default()
	}
	_, _, info, diags := run(src, cfg)
	if info == nil {
		return diags, nil
	}
	return diags, cfg.ValidateVectors(info.Claims)
}

// ParseOnly stops after syntax analysis; the CLI uses it for --verbose AST
// dumps.
func ParseOnly(src string) (*ast.Program, []diag.Diagnostic) {
	toks, lexErr := lexer.Tokenize(src)
	if lexErr != nil {
		return nil, []diag.Diagnostic{*lexErr}
	}
	prog, parseErr := parser.Parse(toks)
	if parseErr != nil {
		return nil, []diag.Diagnostic{*parseErr}
	}
	return prog, nil
}

// run is the one-shot pipeline. Lex and parse errors abort immediately;
// semantic errors are collected and reported together; code generation only
// happens on a clean analysis.
func run(src string, cfg *config.Config) (string, *ast.Program, *analyzer.Info, []diag.Diagnostic) {
	toks, lexErr := lexer.Tokenize(src)
	if lexErr != nil {
		return "", nil, nil, []diag.Diagnostic{*lexErr}
	}

	prog, parseErr := parser.Parse(toks)
	if parseErr != nil {
		return "", nil, nil, []diag.Diagnostic{*parseErr}
	}

	info, diags := analyzer.Analyze(prog)
	if len(diags) > 0 {
		diag.Sort(diags)
		return "", prog, info, diags
	}

	c := emitter.NewEmitter(cfg).Emit(prog, info)
	return c, prog, info, nil
}

// CompileAndWrite compiles one .st file and writes the .c translation unit
// next to outDir, returning the output path.
func CompileAndWrite(srcPath, outDir string, cfg *config.Config) (string, error) {
	if filepath.Ext(srcPath) != ".st" {
		return "", fmt.Errorf("source must have .st extension")
	}

	src, err := os.ReadFile(srcPath)
	if err != nil {
		return "", err
	}

	c, diags := Compile(string(src), cfg)
	if len(diags) > 0 {
		return "", fmt.Errorf("%s", formatDiags(srcPath, diags))
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(srcPath), ".st")
	outFile := filepath.Join(outDir, base+".c")
	return outFile, os.WriteFile(outFile, []byte(c), 0o644)
}

func formatDiags(srcPath string, diags []diag.Diagnostic) string {
	lines := make([]string, len(diags))
	for i, d := range diags {
		lines[i] = srcPath + ":" + d.String()
	}
	return strings.Join(lines, "\n")
}
