// Package main is the entry point for the selact pipeline daemon.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/selact/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, cmd := parseFlags()

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// Ensure cleanup on all exit paths
	defer application.Shutdown()

	switch {
	case cmd.importPath != "":
		return runImport(application, cmd.importPath)
	case cmd.generateRule != "":
		return runGenerate(application, cmd.generateRule)
	}

	if err := application.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start: %v\n", err)
		return 1
	}

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	return 0
}

// runImport merges rules from a file into the stored set and exits.
func runImport(application *app.Application, path string) int {
	count, err := application.Store().Import(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: import failed: %v\n", err)
		return 1
	}
	fmt.Printf("Imported %d rules\n", count)
	return 0
}

// runGenerate asks the AI backend to draft a rule from a description and
// prints it for review.
func runGenerate(application *app.Application, description string) int {
	r, err := application.AI().GenerateRule(context.Background(), description)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: rule generation failed: %v\n", err)
		return 1
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}

type command struct {
	importPath   string
	generateRule string
}

func parseFlags() (app.Options, command) {
	var opts app.Options
	var cmd command
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigDir, "config", "", "Path to configuration directory")
	flag.StringVar(&opts.ConfigDir, "c", "", "Path to configuration directory (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&cmd.importPath, "import", "", "Import rules from a file and exit")
	flag.StringVar(&cmd.generateRule, "generate-rule", "", "Generate a rule from a description and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Selact - selection-triggered action pipeline\n\n")
		fmt.Fprintf(os.Stderr, "Usage: selact [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  selact                          Run the pipeline daemon\n")
		fmt.Fprintf(os.Stderr, "  selact -import rules.json       Merge rules into the stored set\n")
		fmt.Fprintf(os.Stderr, "  selact -generate-rule 'open jira tickets like PROJ-123'\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Selact %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	// Validate log level
	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
		// Valid
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		os.Exit(1)
	}

	return opts, cmd
}
