package config

import (
	"os"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "config-*.txt")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}
	return tmpfile.Name()
}

func TestLoadConfig(t *testing.T) {
	content := `
num-cpu 4
scheduler "rr"
quantum-cycles 5
batch-process-freq 1
min-ins 3
max-ins 10
delays-per-exec 0 # no artificial delay
`
	path := writeTempConfig(t, content)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.NumCPU != 4 {
		t.Errorf("expected NumCPU = 4, got %d", cfg.NumCPU)
	}
	if cfg.Scheduler != "rr" {
		t.Errorf("expected Scheduler = rr, got %s", cfg.Scheduler)
	}
	if cfg.QuantumCycles != 5 {
		t.Errorf("expected QuantumCycles = 5, got %d", cfg.QuantumCycles)
	}
	if cfg.DelaysPerExec != 0 {
		t.Errorf("expected DelaysPerExec = 0, got %d", cfg.DelaysPerExec)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/no/such/config.txt"); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	base := map[string]string{
		"num-cpu":            "4",
		"scheduler":          "fcfs",
		"quantum-cycles":     "1",
		"batch-process-freq": "1",
		"min-ins":            "1",
		"max-ins":            "5",
		"delays-per-exec":    "0",
	}

	clone := func(overrides map[string]string) map[string]string {
		m := make(map[string]string, len(base))
		for k, v := range base {
			m[k] = v
		}
		for k, v := range overrides {
			m[k] = v
		}
		return m
	}

	tests := []struct {
		name    string
		raw     map[string]string
		wantErr bool
	}{
		{name: "valid fcfs", raw: clone(nil), wantErr: false},
		{name: "valid rr", raw: clone(map[string]string{"scheduler": "rr", "quantum-cycles": "3"}), wantErr: false},
		{name: "missing key", raw: func() map[string]string {
			m := clone(nil)
			delete(m, "min-ins")
			return m
		}(), wantErr: true},
		{name: "bad scheduler", raw: clone(map[string]string{"scheduler": "priority"}), wantErr: true},
		{name: "num-cpu out of range", raw: clone(map[string]string{"num-cpu": "200"}), wantErr: true},
		{name: "max-ins less than min-ins", raw: clone(map[string]string{"min-ins": "10", "max-ins": "5"}), wantErr: true},
		{name: "negative delays", raw: clone(map[string]string{"delays-per-exec": "-1"}), wantErr: true},
		{name: "rr without valid quantum", raw: clone(map[string]string{"scheduler": "rr", "quantum-cycles": "0"}), wantErr: true},
		{name: "unknown key", raw: clone(map[string]string{"max-cores": "8"}), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateConfig(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}
	if cfg.NumCPU != 4 {
		t.Errorf("expected default NumCPU = 4, got %d", cfg.NumCPU)
	}
	if cfg.Scheduler != "rr" {
		t.Errorf("expected default Scheduler = rr, got %s", cfg.Scheduler)
	}
}
