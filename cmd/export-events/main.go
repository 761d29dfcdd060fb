// Command export-events writes each territory's raw event list to
// <out>/<code>-events.json, for publishing static snapshots.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "rcjcal/internal/log"
	"rcjcal/internal/source"
)

func main() {
	baseURL := flag.String("source", "https://enter.robocupjunior.org.au/api/v1/public", "Entry system public API root")
	out := flag.String("out", "docs/data", "Output directory")
	states := flag.String("states", "qld,nsw,vic,sa,wa", "Comma-separated territory codes to export")
	timeout := flag.Duration("timeout", 10*time.Second, "Per-request timeout")
	flag.Parse()

	if err := os.MkdirAll(*out, 0o755); err != nil {
		appLog.Error("failed to create output directory", err, "out", *out)
		os.Exit(1)
	}

	client := source.NewClient(strings.TrimRight(*baseURL, "/"), *timeout)
	ctx := context.Background()

	failed := 0
	for _, code := range strings.Split(*states, ",") {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			continue
		}

		raw, err := client.FetchRawEvents(ctx, code)
		if err != nil {
			failed++
			appLog.Error("export failed", err, "state", code)
			continue
		}

		path := filepath.Join(*out, code+"-events.json")
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			failed++
			appLog.Error("export write failed", err, "state", code, "path", path)
			continue
		}
		appLog.Info("exported events", "state", code, "count", countEvents(raw), "path", path)
	}

	appLog.Sync()
	if failed > 0 {
		os.Exit(1)
	}
}

// countEvents accepts either a bare array or an object with an "events" array.
func countEvents(raw json.RawMessage) int {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return len(list)
	}
	var wrapped struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return len(wrapped.Events)
	}
	return 0
}
