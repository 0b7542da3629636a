// oxy-gltf inspects glTF 2.0 assets. It loads a .gltf or .glb file, prints a
// summary and the main scene's node tree, and can dump decoded accessors or
// digest the raw buffers.
//
// Usage:
//
//	oxy-gltf [flags] <model.gltf|model.glb>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/Carmen-Shannon/oxy-gltf/engine/config"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	logLevel   string
	logFormat  string
	accessors  []int
	all        bool
	format     string
	compress   bool
	digest     bool
	tree       bool
	prefetch   bool
	profile    bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts options

	flagSet := pflag.NewFlagSet("oxy-gltf", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "path to a YAML or JSONC config file (default: $"+config.EnvConfigPath+")")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	flagSet.StringVar(&opts.logFormat, "log-format", "", "log format: auto, text or json (overrides config)")
	flagSet.IntSliceVarP(&opts.accessors, "accessor", "a", nil, "accessor indices to decode and dump")
	flagSet.BoolVar(&opts.all, "all-accessors", false, "decode and dump every accessor")
	flagSet.StringVarP(&opts.format, "format", "f", "text", "dump format: text, json, yaml or cbor")
	flagSet.BoolVar(&opts.compress, "compress", false, "zstd-compress the accessor dump")
	flagSet.BoolVar(&opts.digest, "digest", false, "print a BLAKE3 digest of every buffer")
	flagSet.BoolVar(&opts.tree, "tree", true, "print the main scene node tree")
	flagSet.BoolVar(&opts.prefetch, "prefetch", false, "decode every accessor on the worker pool before reporting")
	flagSet.BoolVar(&opts.profile, "profile", false, "log time and allocations per phase")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage: oxy-gltf [flags] <model.gltf|model.glb>\n\nFlags:\n%s", flagSet.FlagUsages())
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return fmt.Errorf("expected exactly one model path, got %d", flagSet.NArg())
	}
	path := flagSet.Arg(0)

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := cfg.LogLevel()
	logger := newLogger(stderr, level, cfg.Log.Format).With("model", path)

	profLogger := slog.New(slog.DiscardHandler)
	if opts.profile {
		profLogger = logger
	}
	prof := profiler.NewProfiler(profLogger)

	l, err := loader.NewLoader(path, cfg.LoaderOptions(logger)...)
	if err != nil {
		return err
	}
	prof.Mark("load")

	if opts.prefetch {
		if err := l.Prefetch(ctx); err != nil {
			logger.Warn("prefetch incomplete", "error", err)
		}
		prof.Mark("prefetch")
	}

	writeSummary(stdout, path, l)
	if opts.tree {
		if err := writeTree(stdout, l); err != nil {
			return err
		}
	}
	if opts.digest {
		writeDigests(stdout, l)
		prof.Mark("digest")
	}

	indices := opts.accessors
	if opts.all {
		indices = make([]int, len(l.Document().Accessors))
		for i := range indices {
			indices[i] = i
		}
	}
	if len(indices) > 0 {
		dumps := make([]accessorDump, 0, len(indices))
		for _, i := range indices {
			data, err := l.AccessorData(i)
			if err != nil {
				return err
			}
			dumps = append(dumps, newAccessorDump(i, l.Document().Accessors[i].Name, data))
		}
		if err := writeDumps(stdout, dumps, opts.format, opts.compress); err != nil {
			return err
		}
		prof.Mark("dump")
	}

	logger.Debug("done", "elapsed", prof.Total())
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}
