package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `name: iam-user-cycle
base_url: https://${hostname}:${port}
variables:
  hostname: 10.230.246.7
  port: "28100"
load:
  threads: 3
  loops: 10
  ramp_up: 9s
  graceful_stop: 30
http:
  timeout: 1m
  insecure_skip_verify: true
steps:
  - request:
      name: Admin Login
      method: POST
      path: /api/v2/login
      body: '{"username":"admin","password":"secret"}'
      extract:
        - name: auth
          source: header
          pattern: 'Authorization: (.*)'
      expect:
        status: 200
  - for_each:
      in: users
      as: user
      steps:
        - request:
            name: Delete User
            method: DELETE
            path: /api/v2/iam/users/${user}
  - loop:
      count: 2
      steps:
        - request:
            name: Create User
            method: POST
            path: /api/v2/iam/users
            body_fields:
              - key: uid
                value: user${random(0,1000,suffix)}
              - key: display_name
                value: user${suffix}
            think_time: 500ms
`

func TestParseScenarioYAML(t *testing.T) {
	scenario, err := ParseScenario([]byte(sampleYAML), "scenario.yaml")
	if err != nil {
		t.Fatalf("ParseScenario() error = %v", err)
	}

	if scenario.Name != "iam-user-cycle" {
		t.Errorf("Name = %q, want %q", scenario.Name, "iam-user-cycle")
	}
	if scenario.BaseURL != "https://${hostname}:${port}" {
		t.Errorf("BaseURL = %q, want %q", scenario.BaseURL, "https://${hostname}:${port}")
	}
	if got := scenario.Variables["port"]; got != "28100" {
		t.Errorf("Variables[port] = %q, want %q", got, "28100")
	}

	if scenario.Load.Threads != 3 {
		t.Errorf("Load.Threads = %d, want 3", scenario.Load.Threads)
	}
	if scenario.Load.Loops != 10 {
		t.Errorf("Load.Loops = %d, want 10", scenario.Load.Loops)
	}
	if time.Duration(scenario.Load.RampUp) != 9*time.Second {
		t.Errorf("Load.RampUp = %v, want 9s", time.Duration(scenario.Load.RampUp))
	}
	if time.Duration(scenario.Load.GracefulStop) != 30*time.Second {
		t.Errorf("Load.GracefulStop = %v, want 30s (bare number is seconds)", time.Duration(scenario.Load.GracefulStop))
	}
	if time.Duration(scenario.HTTP.Timeout) != time.Minute {
		t.Errorf("HTTP.Timeout = %v, want 1m", time.Duration(scenario.HTTP.Timeout))
	}
	if !scenario.HTTP.InsecureSkipVerify {
		t.Error("HTTP.InsecureSkipVerify = false, want true")
	}

	if len(scenario.Steps) != 3 {
		t.Fatalf("len(Steps) = %d, want 3", len(scenario.Steps))
	}

	login := scenario.Steps[0].Request
	if login == nil {
		t.Fatal("Steps[0].Request is nil")
	}
	if login.Name != "Admin Login" {
		t.Errorf("Request.Name = %q, want %q", login.Name, "Admin Login")
	}
	if len(login.Extract) != 1 || login.Extract[0].Pattern != "Authorization: (.*)" {
		t.Errorf("Extract = %+v, want single header pattern", login.Extract)
	}
	if login.Expect == nil || login.Expect.Status != 200 {
		t.Errorf("Expect = %+v, want status 200", login.Expect)
	}

	forEach := scenario.Steps[1].ForEach
	if forEach == nil {
		t.Fatal("Steps[1].ForEach is nil")
	}
	if forEach.In != "users" || forEach.As != "user" {
		t.Errorf("ForEach = in %q as %q, want in users as user", forEach.In, forEach.As)
	}

	loop := scenario.Steps[2].Loop
	if loop == nil {
		t.Fatal("Steps[2].Loop is nil")
	}
	if loop.Count != 2 {
		t.Errorf("Loop.Count = %d, want 2", loop.Count)
	}
	create := loop.Steps[0].Request
	if create == nil {
		t.Fatal("Loop.Steps[0].Request is nil")
	}
	if len(create.Fields) != 2 {
		t.Fatalf("len(Fields) = %d, want 2", len(create.Fields))
	}
	if create.Fields[0].Key != "uid" || create.Fields[1].Key != "display_name" {
		t.Errorf("field order = [%s %s], want [uid display_name]", create.Fields[0].Key, create.Fields[1].Key)
	}
	if time.Duration(create.ThinkTime) != 500*time.Millisecond {
		t.Errorf("ThinkTime = %v, want 500ms", time.Duration(create.ThinkTime))
	}
}

func TestParseScenarioJSON(t *testing.T) {
	doc := `{
		"name": "smoke",
		"base_url": "http://localhost:8080",
		"load": {"threads": 2, "ramp_up": 4},
		"steps": [
			{"request": {"name": "Ping", "method": "GET", "path": "/ping"}}
		]
	}`

	scenario, err := ParseScenario([]byte(doc), "scenario.json")
	if err != nil {
		t.Fatalf("ParseScenario() error = %v", err)
	}
	if scenario.Name != "smoke" {
		t.Errorf("Name = %q, want %q", scenario.Name, "smoke")
	}
	if time.Duration(scenario.Load.RampUp) != 4*time.Second {
		t.Errorf("Load.RampUp = %v, want 4s", time.Duration(scenario.Load.RampUp))
	}
	if len(scenario.Steps) != 1 || scenario.Steps[0].Request == nil {
		t.Fatalf("Steps = %+v, want one request step", scenario.Steps)
	}
}

func TestParseScenarioUnsupportedFormat(t *testing.T) {
	if _, err := ParseScenario([]byte("name: x"), "scenario.toml"); err == nil {
		t.Error("ParseScenario() with .toml expected error, got nil")
	}
	if _, err := ParseScenario([]byte("name: x"), "scenario"); err == nil {
		t.Error("ParseScenario() without extension expected error, got nil")
	}
}

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("writing scenario file: %v", err)
	}

	scenario, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}
	if scenario.Name != "iam-user-cycle" {
		t.Errorf("Name = %q, want %q", scenario.Name, "iam-user-cycle")
	}

	if _, err := LoadScenario(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadScenario() with missing file expected error, got nil")
	}
}

func TestAsJSON(t *testing.T) {
	converted, err := AsJSON([]byte(sampleYAML), "scenario.yaml")
	if err != nil {
		t.Fatalf("AsJSON() error = %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(converted, &doc); err != nil {
		t.Fatalf("AsJSON() produced invalid JSON: %v", err)
	}
	if doc["name"] != "iam-user-cycle" {
		t.Errorf("converted name = %v, want iam-user-cycle", doc["name"])
	}

	orig := []byte(`{"name":"x"}`)
	passthrough, err := AsJSON(orig, "scenario.json")
	if err != nil {
		t.Fatalf("AsJSON() on JSON error = %v", err)
	}
	if string(passthrough) != string(orig) {
		t.Errorf("AsJSON() on JSON = %s, want passthrough", passthrough)
	}
}

func TestDurationForms(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want time.Duration
		ok   bool
	}{
		{"go string", `{"timeout": "1m30s"}`, 90 * time.Second, true},
		{"bare seconds", `{"timeout": 45}`, 45 * time.Second, true},
		{"fractional seconds", `{"timeout": 0.5}`, 500 * time.Millisecond, true},
		{"integer string", `{"timeout": "45"}`, 45 * time.Second, true},
		{"garbage", `{"timeout": "soon"}`, 0, false},
		{"wrong type", `{"timeout": true}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg HTTPConfig
			err := json.Unmarshal([]byte(tt.doc), &cfg)
			if tt.ok && err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.doc, err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatalf("Unmarshal(%s) expected error, got nil", tt.doc)
				}
				return
			}
			if time.Duration(cfg.Timeout) != tt.want {
				t.Errorf("Timeout = %v, want %v", time.Duration(cfg.Timeout), tt.want)
			}
		})
	}
}

func TestDurationMarshal(t *testing.T) {
	cfg := HTTPConfig{Timeout: Duration(90 * time.Second)}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"timeout":"1m30s"}` {
		t.Errorf("Marshal() = %s, want {\"timeout\":\"1m30s\"}", data)
	}
}

func TestParseDurationString(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"9s", 9 * time.Second, true},
		{"1m", time.Minute, true},
		{"250ms", 250 * time.Millisecond, true},
		{"9", 9 * time.Second, true},
		{"0", 0, true},
		{"", 0, false},
		{"fast", 0, false},
	}

	for _, tt := range tests {
		got, err := ParseDurationString(tt.in)
		if tt.ok != (err == nil) {
			t.Errorf("ParseDurationString(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseDurationString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
