package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	if cmd.Use != "stockroom" {
		t.Errorf("expected Use to be 'stockroom', got %s", cmd.Use)
	}

	expectedCommands := []string{
		"version", "serve", "migrate", "import", "export",
		"template", "seed", "produce", "report", "user",
	}
	for _, expected := range expectedCommands {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected command %s to be registered", expected)
		}
	}
}

// run executes the root command with args and returns stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	Version = "1.2.3-test"
	defer func() { Version = "dev" }()

	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "1.2.3-test") {
		t.Errorf("expected version in output, got %q", out)
	}
}

func TestTemplateCommand(t *testing.T) {
	dir := t.TempDir()

	if _, err := run(t, "template", "--dir", dir, "suppliers", "bom"); err != nil {
		t.Fatalf("template failed: %v", err)
	}
	for _, name := range []string{"suppliers_template.xlsx", "bom_template.xlsx"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "products_template.xlsx")); !os.IsNotExist(err) {
		t.Error("expected only the requested templates")
	}

	if _, err := run(t, "template", "--dir", dir, "widgets"); err == nil {
		t.Error("expected an error for an unknown template kind")
	}
}

// writeConfig points the CLI at a SQLite file in a temp dir
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "stockroom.yaml")
	cfg := "database:\n" +
		"  driver: sqlite3\n" +
		"  url: " + filepath.Join(dir, "stockroom.db") + "\n" +
		"auth:\n" +
		"  bcrypt_cost: 4\n" +
		"log:\n" +
		"  level: error\n"
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestSeedProduceAndReport(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "seed")
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if !strings.Contains(out, "Seeded 2 supplier(s)") {
		t.Errorf("unexpected seed output %q", out)
	}

	if _, err := run(t, "--config", cfg, "produce", "FG-COOK", "4", "--notes", "test bake"); err != nil {
		t.Fatalf("produce failed: %v", err)
	}
	if _, err := run(t, "--config", cfg, "produce", "FG-CAKE", "100"); err == nil {
		t.Error("expected producing 100 cakes to fail for lack of eggs")
	}

	out, err = run(t, "--config", cfg, "report", "transactions", "--source", "production", "-f", "csv")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	for _, sku := range []string{"RM-FLR", "RM-BUT", "FG-COOK"} {
		if !strings.Contains(out, sku) {
			t.Errorf("expected a production movement for %s in %q", sku, out)
		}
	}

	out, err = run(t, "--config", cfg, "report", "materials", "-f", "json")
	if err != nil {
		t.Fatalf("materials report failed: %v", err)
	}
	var report struct {
		Materials []struct {
			SKU string `json:"sku"`
		} `json:"materials"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if len(report.Materials) != 4 {
		t.Errorf("expected 4 raw materials, got %d", len(report.Materials))
	}
}

func TestMigrateStatus(t *testing.T) {
	cfg := writeConfig(t)

	if _, err := run(t, "--config", cfg, "migrate", "up"); err != nil {
		t.Fatalf("migrate up failed: %v", err)
	}
	out, err := run(t, "--config", cfg, "migrate", "status")
	if err != nil {
		t.Fatalf("migrate status failed: %v", err)
	}
	if strings.Contains(out, "[pending]") {
		t.Errorf("expected every migration applied, got %q", out)
	}
	if !strings.Contains(out, "0 pending") {
		t.Errorf("unexpected status output %q", out)
	}
}

func TestExportRequiresMaterial(t *testing.T) {
	if _, err := run(t, "export", "batches"); err == nil || !strings.Contains(err.Error(), "--material") {
		t.Errorf("expected a --material error, got %v", err)
	}
}
