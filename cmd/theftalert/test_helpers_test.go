package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"theftalert/internal/config"
	"theftalert/internal/testsupport"
)

const usersFixture = `users:
  - id: u-local
    display_name: Local Resident
    settings:
      local_alerts: true
      email: local@example.test
      phone_number: "+447700900123"
      channels: {email: true, sms: true}
    regions:
      - name: home
        shape: circle
        center: {lat: 51.5074, lng: -0.1278}
        radius_meters: 2000
  - id: u-national
    settings:
      national_alerts: true
      email: national@example.test
      channels: {email: true}
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("THEFTALERT_DATABASE_URL", "")
	t.Setenv("THEFTALERT_AMQP_URL", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[dispatch]
workers = 4
channel_timeout_seconds = 5

[links]
base_url = %q

[ingest]
http_bind = %q

[logging]
format = "json"
level = "error"
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Links.BaseURL,
		cfg.Ingest.HTTPBind,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func writeReport(t *testing.T, dir, id string) string {
	t.Helper()
	data, err := json.Marshal(testsupport.ActiveReport(id))
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	return writeFile(t, dir, id+".json", string(data))
}

func decodeJSON(t *testing.T, out string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("decode json output: %v\n%s", err, out)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
