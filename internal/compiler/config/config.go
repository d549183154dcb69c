package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/plctools/st2cc/internal/compiler/addr"
)

// Default physical start addresses of the I/O regions.
const (
	DefaultInputBase  = 0x1000
	DefaultOutputBase = 0x2000
)

// AddrConfig holds the physical start addresses of the input and output
// regions; a variable's macro value is region base plus byte offset.
type AddrConfig struct {
	Input  int64 `toml:"input"`
	Output int64 `toml:"output"`
}

// Config is the compiler configuration, loaded from a TOML file:
//
//	[addr]
//	input = 0x1000
//	output = 0x2000
//
//	[test]
//	ix0 = [0b011, 0b000]   # per-cycle input samples
//	qx0 = [0b11, 0b00]     # per-cycle output assertions
type Config struct {
	Addr AddrConfig         `toml:"addr"`
	Test map[string][]int64 `toml:"test"`
}

// Default returns the configuration used when no --cfg file is given.
func Default() *Config {
	return &Config{
		Addr: AddrConfig{Input: DefaultInputBase, Output: DefaultOutputBase},
	}
}

// Load reads a TOML configuration file; absent keys keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML configuration text; absent keys keep their defaults.
func Parse(text string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(text, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Base returns the start address of a region.
func (c *Config) Base(r addr.Region) int64 {
	if r == addr.Input {
		return c.Addr.Input
	}
	return c.Addr.Output
}

// ValidateVectors checks that every [test] vector name refers to an I/O cell
// the compiled program actually claims. Names follow the address-literal
// letters in lower case, e.g. "ix0" for %IX0.* or "qw1" for %QW1. Returned
// strings are warnings, not compile errors.
func (c *Config) ValidateVectors(claims []addr.Claim) []string {
	var warnings []string
	for _, name := range sortedVectorNames(c.Test) {
		a, err := parseVectorName(name)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("test vector %q: %v", name, err))
			continue
		}
		matched := false
		for _, cl := range claims {
			if cl.Addr.Region == a.Region && cl.Addr.BytePos() == a.BytePos() {
				matched = true
				break
			}
		}
		if !matched {
			warnings = append(warnings, fmt.Sprintf("test vector %q matches no hardware-mapped variable", name))
		}
	}
	return warnings
}

func sortedVectorNames(test map[string][]int64) []string {
	names := make([]string, 0, len(test))
	for name := range test {
		names = append(names, name)
	}
	// deterministic warning order
	sort.Strings(names)
	return names
}

func parseVectorName(name string) (*addr.Address, error) {
	if len(name) < 3 {
		return nil, fmt.Errorf("want region, granularity and position, e.g. ix0")
	}
	lit := "%" + strings.ToUpper(name[:2]) + name[2:]
	a, err := addr.Parse(lit)
	if err != nil {
		return nil, err
	}
	return a, nil
}
