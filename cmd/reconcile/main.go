// Command reconcile replays referral joins recovered from bot /start logs.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gtm-backend/internal/app"
	"gtm-backend/internal/common/config"
	"gtm-backend/internal/common/logger"
	"gtm-backend/internal/features/referral/service"
)

func main() {
	pause := flag.Duration("pause", 200*time.Millisecond, "pause between joins")
	dryRun := flag.Bool("dry-run", false, "only print the parsed pairs")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <log-file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	lines, err := readLines(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	pairs := service.ParseLogLines(lines)

	if *dryRun {
		printJSON(map[string]interface{}{"pairs": pairs, "total": len(pairs)})
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	logger.Init("gtm-reconcile", cfg.Debug)

	container, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer container.Close()

	logger.Info().Int("pairs", len(pairs)).Str("file", path).Msg("reconciling referral joins")
	summary, err := service.Reconcile(ctx, container.Referrals, pairs, *pause)
	if err != nil {
		logger.Error().Err(err).Msg("reconcile interrupted")
	}

	details := summary.Details
	summary.Details = nil
	printJSON(summary)

	out := path + ".reconcile.result.json"
	data, jerr := json.MarshalIndent(details, "", "  ")
	if jerr != nil {
		logger.Fatal().Err(jerr).Msg("encode details")
	}
	if werr := os.WriteFile(out, data, 0o644); werr != nil {
		logger.Fatal().Err(werr).Str("file", out).Msg("write details")
	}
	logger.Info().Str("file", out).Msg("details written")

	if err != nil {
		os.Exit(1)
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Printf("encode output: %v", err)
	}
}
