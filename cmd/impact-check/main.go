package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mr1hm/geo-impact-monitor/internal/app"
	"github.com/mr1hm/geo-impact-monitor/internal/config"
	"github.com/mr1hm/geo-impact-monitor/internal/geolocation"
	"github.com/mr1hm/geo-impact-monitor/internal/logging"
)

// impact-check runs a single assessment over the ids given as arguments, or
// read from stdin when there are none, and prints the report as JSON.
func main() {
	atRiskOnly := flag.Bool("at-risk", false, "print only at-risk records")
	persist := flag.Bool("save", false, "store the run in the configured database")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	// stdout carries the report
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	ids, err := readIDs(flag.Args(), os.Stdin)
	if err != nil {
		logging.Fatalf("Failed to read ids: %v", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(os.Stderr, "usage: impact-check [-at-risk] [-save] [ip ...]  (or ids on stdin)")
		os.Exit(2)
	}

	monitor, err := app.New(cfg, app.Options{Persist: *persist})
	if err != nil {
		logging.Fatalf("Failed to initialize monitor: %v", err)
	}
	defer monitor.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := monitor.Service.Assess(ctx, ids)
	if err != nil {
		slog.Error("assessment failed", "error", err)
		monitor.Close()
		os.Exit(1)
	}

	var out any = report
	if *atRiskOnly {
		out = report.AtRisk()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		slog.Error("error writing report", "error", err)
	}
}

func readIDs(args []string, stdin io.Reader) ([]string, error) {
	if len(args) > 0 {
		return geolocation.ParseIDs(strings.Join(args, "\n")), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, err
	}
	return geolocation.ParseIDs(string(data)), nil
}
