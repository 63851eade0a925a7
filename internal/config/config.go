// Package config loads and validates the emulator's configuration
// file: a line-oriented "key value  # comment" grammar, not
// YAML/JSON/TOML.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jasonkoogler/csopesy-sim/internal/errs"
)

// Config holds the seven required settings that drive a run.
type Config struct {
	NumCPU           int
	Scheduler        string // "fcfs" or "rr"
	QuantumCycles    uint64
	BatchProcessFreq uint64
	MinIns           int
	MaxIns           int
	DelaysPerExec    int
}

var requiredKeys = []string{
	"num-cpu", "scheduler", "quantum-cycles",
	"batch-process-freq", "min-ins", "max-ins", "delays-per-exec",
}

// LoadConfig reads and validates the config file at path.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.NewConfigError("", fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	raw, err := parseLines(f)
	if err != nil {
		return nil, err
	}
	return validateConfig(raw)
}

// parseLines implements the grammar: everything from the first '#' to
// end of line is a comment; the first whitespace-separated token on a
// line is the key, the rest (trimmed) is the value; a value wrapped in
// double quotes has them stripped.
func parseLines(r *os.File) (map[string]string, error) {
	raw := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		key := fields[0]
		value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), key))
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}
		raw[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.NewIoError("read config", err)
	}
	return raw, nil
}

// validateConfig enforces the required-key set, the scheduler
// enumeration, and the numeric ranges of each value.
func validateConfig(raw map[string]string) (*Config, error) {
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			return nil, errs.NewConfigError(key, fmt.Errorf("missing required key"))
		}
	}
	allowed := make(map[string]bool, len(requiredKeys))
	for _, key := range requiredKeys {
		allowed[key] = true
	}
	for key := range raw {
		if !allowed[key] {
			return nil, errs.NewConfigError(key, fmt.Errorf("unknown config key"))
		}
	}

	scheduler := strings.ToLower(raw["scheduler"])
	if scheduler != "fcfs" && scheduler != "rr" {
		return nil, errs.NewConfigError("scheduler", fmt.Errorf("must be %q or %q, got %q", "fcfs", "rr", raw["scheduler"]))
	}

	numCPU, err := strconv.Atoi(raw["num-cpu"])
	if err != nil || numCPU < 1 || numCPU > 128 {
		return nil, errs.NewConfigError("num-cpu", fmt.Errorf("must be an integer in [1, 128]"))
	}

	batchFreq, err := strconv.ParseUint(raw["batch-process-freq"], 10, 64)
	if err != nil || batchFreq < 1 {
		return nil, errs.NewConfigError("batch-process-freq", fmt.Errorf("must be at least 1"))
	}

	minIns, err := strconv.Atoi(raw["min-ins"])
	if err != nil || minIns < 1 {
		return nil, errs.NewConfigError("min-ins", fmt.Errorf("must be at least 1"))
	}

	maxIns, err := strconv.Atoi(raw["max-ins"])
	if err != nil || maxIns < 1 {
		return nil, errs.NewConfigError("max-ins", fmt.Errorf("must be at least 1"))
	}
	if maxIns < minIns {
		return nil, errs.NewConfigError("max-ins", fmt.Errorf("cannot be less than min-ins"))
	}

	delays, err := strconv.Atoi(raw["delays-per-exec"])
	if err != nil || delays < 0 {
		return nil, errs.NewConfigError("delays-per-exec", fmt.Errorf("cannot be negative"))
	}

	var quantum uint64
	if scheduler == "rr" {
		quantum, err = strconv.ParseUint(raw["quantum-cycles"], 10, 64)
		if err != nil || quantum < 1 {
			return nil, errs.NewConfigError("quantum-cycles", fmt.Errorf("must be at least 1 for rr scheduler"))
		}
	} else if v, ok := raw["quantum-cycles"]; ok {
		quantum, _ = strconv.ParseUint(v, 10, 64)
	}

	return &Config{
		NumCPU:           numCPU,
		Scheduler:        scheduler,
		QuantumCycles:    quantum,
		BatchProcessFreq: batchFreq,
		MinIns:           minIns,
		MaxIns:           maxIns,
		DelaysPerExec:    delays,
	}, nil
}

// DefaultConfig returns a small, valid configuration suitable for ad
// hoc runs without a config file.
func DefaultConfig() *Config {
	return &Config{
		NumCPU:           4,
		Scheduler:        "rr",
		QuantumCycles:    5,
		BatchProcessFreq: 1,
		MinIns:           3,
		MaxIns:           10,
		DelaysPerExec:    0,
	}
}
