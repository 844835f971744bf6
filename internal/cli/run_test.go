package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wesleyorama2/riposte/internal/config"
	"github.com/wesleyorama2/riposte/internal/metrics"
)

const validScenarioYAML = `name: smoke
base_url: https://${hostname}:${port}
variables:
  hostname: 10.0.0.1
  port: "8443"
load:
  threads: 2
  loops: 5
  ramp_up: 4s
steps:
  - request:
      name: Login
      method: POST
      path: /api/v2/login
      body: '{"username":"${user}"}'
      extract:
        - name: auth
          pattern: 'Authorization: (.*)'
  - for_each:
      in: users
      as: user
      steps:
        - request:
            name: Delete User
            method: DELETE
            path: /api/v2/iam/users/${user}
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing scenario file: %v", err)
	}
	return path
}

func TestLoadValidated(t *testing.T) {
	path := writeScenario(t, validScenarioYAML)

	cfg, err := loadValidated(path)
	if err != nil {
		t.Fatalf("loadValidated() error = %v", err)
	}
	if cfg.Name != "smoke" {
		t.Errorf("Name = %q, want %q", cfg.Name, "smoke")
	}
	if cfg.Load.Threads != 2 {
		t.Errorf("Load.Threads = %d, want 2", cfg.Load.Threads)
	}
	if got := time.Duration(cfg.Load.RampUp); got != 4*time.Second {
		t.Errorf("Load.RampUp = %v, want 4s", got)
	}
	if len(cfg.Steps) != 2 {
		t.Errorf("len(Steps) = %d, want 2", len(cfg.Steps))
	}
}

func TestLoadValidatedErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantSub string
	}{
		{
			name:    "empty path",
			path:    func(t *testing.T) string { return "" },
			wantSub: "--file is required",
		},
		{
			name: "missing file",
			path: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nope.yaml")
			},
			wantSub: "Error reading scenario",
		},
		{
			name: "schema violation",
			path: func(t *testing.T) string {
				return writeScenario(t, "name: broken\nbase_url: http://x\nrate: 5\nsteps:\n  - request:\n      name: A\n      path: /a\n")
			},
			wantSub: "Error validating scenario",
		},
		{
			name: "structural violation",
			path: func(t *testing.T) string {
				return writeScenario(t, "name: broken\nbase_url: http://x\nsteps:\n  - request:\n      name: A\n      path: /a\n      extract:\n        - name: token\n          pattern: '(unclosed'\n")
			},
			wantSub: "Configuration validation errors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadValidated(tt.path(t))
			if err == nil {
				t.Fatal("loadValidated() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestLoadValidatedListsEveryError(t *testing.T) {
	content := "name: broken\nbase_url: http://x\nsteps:\n" +
		"  - request:\n      name: A\n      path: /a\n      extract:\n" +
		"        - name: t1\n          pattern: '(one'\n" +
		"        - name: t2\n          pattern: '(two'\n"
	path := writeScenario(t, content)

	_, err := loadValidated(path)
	if err == nil {
		t.Fatal("loadValidated() error = nil, want error")
	}
	if got := strings.Count(err.Error(), "\n  - "); got != 2 {
		t.Errorf("error lists %d findings, want 2:\n%s", got, err.Error())
	}
}

func TestCountRequests(t *testing.T) {
	steps := []config.StepConfig{
		{Request: &config.RequestConfig{Name: "A", Path: "/a"}},
		{ForEach: &config.ForEachConfig{
			In: "users", As: "user",
			Steps: []config.StepConfig{
				{Request: &config.RequestConfig{Name: "B", Path: "/b"}},
				{Loop: &config.LoopConfig{
					Count: 3,
					Steps: []config.StepConfig{
						{Request: &config.RequestConfig{Name: "C", Path: "/c"}},
					},
				}},
			},
		}},
	}

	if got := countRequests(steps); got != 3 {
		t.Errorf("countRequests() = %d, want 3", got)
	}
	if got := countRequests(nil); got != 0 {
		t.Errorf("countRequests(nil) = %d, want 0", got)
	}
}

func TestBuildClient(t *testing.T) {
	cfg := &config.Scenario{
		BaseURL:   "https://${hostname}:${port}",
		Variables: map[string]string{"hostname": "10.0.0.1", "port": "8443"},
		HTTP: config.HTTPConfig{
			Timeout:            config.Duration(time.Minute),
			InsecureSkipVerify: true,
		},
	}

	if client := buildClient(cfg, 0, false, false); client == nil {
		t.Fatal("buildClient() = nil")
	}
	if client := buildClient(cfg, 5*time.Second, true, true); client == nil {
		t.Fatal("buildClient() with overrides = nil")
	}
}

func TestWriteSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	snap := metrics.Snapshot{
		Elapsed:      90 * time.Second,
		TotalSteps:   100,
		SuccessSteps: 99,
		FailedSteps:  1,
	}

	if err := writeSummary(path, "smoke", snap); err != nil {
		t.Fatalf("writeSummary() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading summary: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("summary is not valid JSON: %v", err)
	}
	if decoded["scenario"] != "smoke" {
		t.Errorf("scenario = %v, want smoke", decoded["scenario"])
	}
	if decoded["totalSteps"] != float64(100) {
		t.Errorf("totalSteps = %v, want 100", decoded["totalSteps"])
	}
}

func TestRunCommandFlags(t *testing.T) {
	flags := []string{
		"file", "threads", "loops", "ramp-up", "prop", "out",
		"summary-json", "metrics-addr", "timeout", "insecure",
		"verbose", "log-json", "no-color", "quiet", "seed",
	}
	for _, name := range flags {
		if runCmd.Flags().Lookup(name) == nil {
			t.Errorf("run command is missing the --%s flag", name)
		}
	}

	shorthands := map[string]string{
		"file":    "f",
		"prop":    "P",
		"timeout": "t",
		"verbose": "v",
		"quiet":   "q",
	}
	for name, short := range shorthands {
		flag := runCmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if flag.Shorthand != short {
			t.Errorf("--%s shorthand = %q, want %q", name, flag.Shorthand, short)
		}
	}
}
