// Command lmdriver exposes a locally loaded language model as a
// request/response service over stdin/stdout.
//
// Usage:
//
//	lmdriver [flags] [model]
//
// The model argument is the identifier handed to the inference runtime's
// loader. Protocol responses go to stdout; all diagnostics go to stderr.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/randalmurphal/lmdriver/capability"
	"github.com/randalmurphal/lmdriver/driver"
	"github.com/randalmurphal/lmdriver/inference"
	"github.com/randalmurphal/lmdriver/transcript"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "lmdriver:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "path to TOML config file")
		runtimeName = flag.String("runtime", "", "inference runtime backend (overrides config)")
		logLevel    = flag.String("log-level", "", "diagnostic verbosity: debug, info, warn, error")
		transcriptP = flag.String("transcript", "", "path of a JSONL transcript to append request outcomes to")
		patternsP   = flag.String("probe-patterns", "", "path of a YAML file replacing the restriction probe catalog")
		showSchema  = flag.Bool("schema", false, "print the request JSON Schema and exit")
		tailPath    = flag.String("tail", "", "print events from a JSONL transcript and follow appends; no model is loaded")
	)
	flag.Parse()

	if *showSchema {
		schema, err := driver.RequestSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(schema))
		return nil
	}

	if *tailPath != "" {
		return tailTranscript(*tailPath)
	}

	cfg := driver.DefaultConfig()
	if *configPath != "" {
		loaded, err := driver.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *runtimeName != "" {
		cfg.Runtime = *runtimeName
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *transcriptP != "" {
		cfg.Transcript = *transcriptP
	}
	if *patternsP != "" {
		cfg.ProbePatterns = *patternsP
	}
	if flag.Arg(0) != "" {
		cfg.Model = flag.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	setupLogging(cfg.LogLevel)

	// The mock backend is the binary's model-less smoke target; libraries
	// embedding the registry have to opt in themselves.
	inference.RegisterMock()

	rt, err := inference.New(cfg.Runtime)
	if err != nil {
		return fmt.Errorf("runtime %q: %w (available: %v)", cfg.Runtime, err, inference.Available())
	}

	ctx := context.Background()

	// Model load failure is fatal; the protocol never starts.
	model, tok, err := rt.Load(ctx, cfg.Model)
	if err != nil {
		return fmt.Errorf("load model %q: %w", cfg.Model, err)
	}
	slog.Debug("model loaded",
		slog.String("model", cfg.Model),
		slog.String("runtime", cfg.Runtime))

	var opts []driver.Option

	if cfg.ProbePatterns != "" {
		patterns, err := capability.LoadPatternCatalogFile(cfg.ProbePatterns)
		if err != nil {
			return err
		}
		opts = append(opts, driver.WithProbePatterns(patterns))
	}

	if cfg.Transcript != "" {
		rec, err := transcript.NewWriter(cfg.Transcript)
		if err != nil {
			return err
		}
		defer rec.Close()
		opts = append(opts, driver.WithTranscript(rec))
	}

	return driver.New(rt, model, tok, opts...).Run(ctx)
}

// tailTranscript prints existing events, then follows the file until
// interrupted. Output is JSONL, one event per line, same shape as the file.
func tailTranscript(path string) error {
	r, err := transcript.NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	events, err := r.ReadAll()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	for ev := range r.Tail(ctx) {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
