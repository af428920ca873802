package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/prayer-debt/internal/application"
	"github.com/example/prayer-debt/internal/calendar"
	"github.com/example/prayer-debt/internal/persistence/memory"
)

// offlineUserID owns the throwaway snapshot of an offline calculation.
const offlineUserID = "offline"

func calculateCmd() *cobra.Command {
	var (
		factsPath string
		madhab    string
		nowValue  string
	)

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate a prayer debt offline from a facts file",
		Long: `Reads a calculation request (YAML or JSON, "-" for stdin) and prints the
resulting debt calculation as JSON. Nothing is persisted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readFacts(cmd.InOrStdin(), factsPath)
			if err != nil {
				return err
			}
			if madhab != "" {
				req.Madhab = madhab
			}
			now, err := parseNow(nowValue)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			return calculate(cmd, req, now, logger)
		},
	}

	cmd.Flags().StringVarP(&factsPath, "facts", "f", "", `facts file (YAML or JSON, "-" for stdin)`)
	cmd.Flags().StringVar(&madhab, "madhab", "", "override the madhab of the facts file (hanafi, shafii)")
	cmd.Flags().StringVar(&nowValue, "now", "", "evaluation time as YYYY-MM-DD or RFC 3339 (default current time)")
	_ = cmd.MarkFlagRequired("facts")

	return cmd
}

func calculate(cmd *cobra.Command, req application.CalculationRequest, now time.Time, logger *slog.Logger) error {
	store := memory.New()
	service := application.NewPrayerDebtService(application.PrayerDebtDeps{
		Snapshots: store,
		History:   store,
		Jobs:      store,
		Audit:     store,
		Now:       func() time.Time { return now },
		Logger:    logger,
	}, application.DefaultSettings())

	snapshot, err := service.Calculate(cmd.Context(), application.CalculateParams{UserID: offlineUserID, Request: req})
	if err != nil {
		return describeError(err)
	}

	out, err := json.MarshalIndent(snapshot.Calculation, "", "  ")
	if err != nil {
		return fmt.Errorf("encode calculation: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

func readFacts(stdin io.Reader, path string) (application.CalculationRequest, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return application.CalculationRequest{}, fmt.Errorf("read facts: %w", err)
	}

	// YAML is a superset of JSON, so one decoder serves both formats.
	var req application.CalculationRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return application.CalculationRequest{}, fmt.Errorf("decode facts %s: %w", path, err)
	}
	return req, nil
}

func parseNow(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := calendar.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now %q: want YYYY-MM-DD or RFC 3339", value)
	}
	return t, nil
}

// describeError flattens field errors into one readable message.
func describeError(err error) error {
	var verr *application.ValidationError
	if !errors.As(err, &verr) || !verr.HasErrors() {
		return err
	}
	fields := make([]string, 0, len(verr.FieldErrors))
	for field := range verr.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+verr.FieldErrors[field])
	}
	return fmt.Errorf("invalid facts: %s", strings.Join(parts, "; "))
}
