package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/prayer-debt/internal/config"
	"github.com/example/prayer-debt/internal/dispatch"
	"github.com/example/prayer-debt/internal/domain"
)

const maleFacts = `calculation_method: calculator
personal_data:
  birth_date: "2000-01-01"
  gender: male
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version returned error: %v", err)
	}
	if !strings.HasPrefix(out, "prayerdebt version "+Version) {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestCalculateCommand(t *testing.T) {
	t.Parallel()

	yamlPath := writeFile(t, "facts.yaml", maleFacts)
	jsonPath := writeFile(t, "facts.json", `{"calculation_method":"calculator","personal_data":{"birth_date":"2000-01-01","gender":"male"}}`)

	cases := []struct {
		name     string
		stdin    string
		args     []string
		wantWitr int
	}{
		{name: "yaml file", args: []string{"calculate", "--facts", yamlPath, "--now", "2024-06-01"}, wantWitr: 3602},
		{name: "json file", args: []string{"calculate", "-f", jsonPath, "--now", "2024-06-01T10:00:00Z"}, wantWitr: 3602},
		{name: "stdin with madhab override", stdin: maleFacts, args: []string{"calculate", "--facts", "-", "--now", "2024-06-01", "--madhab", "shafii"}, wantWitr: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out, err := execute(t, tc.stdin, tc.args...)
			if err != nil {
				t.Fatalf("calculate returned error: %v", err)
			}

			var calc domain.DebtCalculation
			if err := json.Unmarshal([]byte(out), &calc); err != nil {
				t.Fatalf("output is not a calculation: %v\n%s", err, out)
			}
			if calc.EffectiveDays != 3602 || calc.MissedPrayers.Fajr != 3602 {
				t.Fatalf("unexpected calculation: %#v", calc)
			}
			if calc.MissedPrayers.Witr != tc.wantWitr {
				t.Fatalf("expected witr %d, got %d", tc.wantWitr, calc.MissedPrayers.Witr)
			}
		})
	}
}

func TestCalculateCommandErrors(t *testing.T) {
	t.Parallel()

	invalid := writeFile(t, "invalid.yaml", "calculation_method: guess\npersonal_data:\n  birth_date: \"2000-01-01\"\n  gender: other\n")
	malformed := writeFile(t, "malformed.yaml", "personal_data: [\n")

	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing facts flag", args: []string{"calculate"}, want: "facts"},
		{name: "validation", args: []string{"calculate", "--facts", invalid}, want: "invalid facts: calculation_method: calculation_method must be manual or calculator; personal_data.gender: gender must be male or female"},
		{name: "malformed", args: []string{"calculate", "--facts", malformed}, want: "decode facts"},
		{name: "missing file", args: []string{"calculate", "--facts", filepath.Join(t.TempDir(), "absent.yaml")}, want: "read facts"},
		{name: "bad now", args: []string{"calculate", "--facts", invalid, "--now", "yesterday"}, want: "invalid --now"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, "", tc.args...)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestMigrateCommand(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "prayerdebt.db")

	for i := 0; i < 2; i++ {
		out, err := execute(t, "", "migrate", "--dsn", dsn)
		if err != nil {
			t.Fatalf("migrate run %d returned error: %v", i+1, err)
		}
		if out != "schema version 001\n" {
			t.Fatalf("unexpected migrate output %q", out)
		}
	}
}

func TestOpenRepositories(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		repos, err := openRepositories(ctx, config.Config{}, storageMemory, discardLogger())
		if err != nil {
			t.Fatalf("openRepositories returned error: %v", err)
		}
		if repos.snapshots == nil || repos.jobs == nil || repos.health != nil {
			t.Fatalf("unexpected memory repositories: %#v", repos)
		}
		if err := repos.close(); err != nil {
			t.Fatalf("close returned error: %v", err)
		}
	})

	t.Run("sealed sqlite", func(t *testing.T) {
		t.Parallel()
		cfg := config.Config{
			SQLiteDSN:      filepath.Join(t.TempDir(), "sealed.db"),
			EncryptionKey:  "test-key",
			EncryptionSalt: "test-salt",
		}
		repos, err := openRepositories(ctx, cfg, storageSQLite, discardLogger())
		if err != nil {
			t.Fatalf("openRepositories returned error: %v", err)
		}
		defer repos.close()
		if err := repos.health(ctx); err != nil {
			t.Fatalf("health returned error: %v", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		if _, err := openRepositories(ctx, config.Config{}, "postgres", discardLogger()); err == nil {
			t.Fatalf("expected error for unknown storage")
		}
	})
}

func TestNewDispatcher(t *testing.T) {
	t.Parallel()

	d, local, closeFn, err := newDispatcher(config.Config{Dispatch: config.DispatchLocal, DispatchWorkers: 2}, discardLogger())
	if err != nil {
		t.Fatalf("local dispatcher returned error: %v", err)
	}
	if local == nil || d != dispatch.Dispatcher(local) {
		t.Fatalf("expected the local pool to be returned twice, got %#v / %#v", d, local)
	}
	closeFn()

	d, local, closeFn, err = newDispatcher(config.Config{
		Dispatch:         config.DispatchHTTP,
		CalculatorURL:    "http://calculator.invalid",
		CalculatorAPIKey: "key",
	}, discardLogger())
	if err != nil {
		t.Fatalf("http dispatcher returned error: %v", err)
	}
	if _, ok := d.(*dispatch.HTTP); !ok || local != nil {
		t.Fatalf("expected an HTTP dispatcher, got %T", d)
	}
	closeFn()

	if _, _, _, err := newDispatcher(config.Config{Dispatch: config.DispatchNATS, NATSURL: "nats://127.0.0.1:1", NATSSubject: "calc"}, discardLogger()); err == nil {
		t.Fatalf("expected error when nats is unreachable")
	}
}

func TestSettingsFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		CalcVersion:       "2.0.0",
		Madhab:            "shafii",
		MaxProgressAmount: 50,
		WebhookSecret:     "secret",
		PublicURL:         "https://debt.example.org",
		SnapshotCacheTTL:  time.Minute,
	}
	settings := settingsFromConfig(cfg)
	if settings.DefaultMadhab != domain.Shafii || settings.MaxProgressAmount != 50 || settings.CalcVersion != "2.0.0" {
		t.Fatalf("unexpected settings: %#v", settings)
	}
	if settings.WebhookURL != "https://debt.example.org/webhooks/prayer-debt" || settings.SnapshotCacheTTL != time.Minute {
		t.Fatalf("unexpected webhook settings: %#v", settings)
	}
}
