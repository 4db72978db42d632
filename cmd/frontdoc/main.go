package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/engine"
	"github.com/dejo1307/frontdoc/internal/explainers/cycles"
	"github.com/dejo1307/frontdoc/internal/explainers/layers"
	"github.com/dejo1307/frontdoc/internal/extractors/apicalls"
	"github.com/dejo1307/frontdoc/internal/extractors/components"
	"github.com/dejo1307/frontdoc/internal/extractors/dataflow"
	"github.com/dejo1307/frontdoc/internal/extractors/endpoints"
	"github.com/dejo1307/frontdoc/internal/extractors/graphql"
	"github.com/dejo1307/frontdoc/internal/extractors/models"
	"github.com/dejo1307/frontdoc/internal/extractors/pages"
	"github.com/dejo1307/frontdoc/internal/renderers/markdown"
	"github.com/dejo1307/frontdoc/internal/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "frontdoc.yaml"

func main() {
	// Ensure log output goes to stderr, never stdout (MCP uses stdout for JSON-RPC)
	log.SetOutput(os.Stderr)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "frontdoc",
		Short: "Generate architecture documentation for frontend and API repositories",
		Long: `frontdoc analyzes a set of repositories (Next.js, React, Node and Go APIs),
extracts pages, components, API calls, GraphQL operations, data flows,
endpoints and models, links them across repositories and renders
markdown documentation with mermaid diagrams.

Output is written to the configured output directory (docs/architecture by default).`,
		SilenceUsage: true,
	}

	generateCmd := &cobra.Command{
		Use:   "generate [config]",
		Short: "Analyze all configured repositories and write the documentation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringP("output", "o", "", "Override the output directory")

	serveCmd := &cobra.Command{
		Use:   "serve [config]",
		Short: "Start the MCP server (stdio by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runServe,
	}
	serveCmd.Flags().String("http", "", "Serve over streamable HTTP on host:port instead of stdio")

	rootCmd.AddCommand(generateCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultConfigPath
}

func newEngine(cfg *config.Config) (*engine.Engine, error) {
	eng, err := engine.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	eng.RegisterExtractor(pages.New())
	eng.RegisterExtractor(components.New())
	eng.RegisterExtractor(graphql.New())
	eng.RegisterExtractor(apicalls.New())
	eng.RegisterExtractor(dataflow.New())
	eng.RegisterExtractor(endpoints.New())
	eng.RegisterExtractor(models.New())

	eng.RegisterExplainer(cycles.New())
	eng.RegisterExplainer(layers.New())

	eng.RegisterRenderer(markdown.New())
	return eng, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath(args))
	if err != nil {
		return err
	}
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		cfg.Output.Dir = out
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := eng.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	if err := eng.WriteArtifacts(); err != nil {
		return fmt.Errorf("writing artifacts: %w", err)
	}

	factCount := 0
	cached := 0
	for _, rr := range report.Repositories {
		factCount += rr.Result.FactCount()
		if rr.Cached {
			cached++
		}
	}
	outDir, _ := filepath.Abs(cfg.Output.Dir)

	fmt.Fprintf(os.Stderr, "\nDocumentation complete:\n")
	fmt.Fprintf(os.Stderr, "  Run:           %s\n", report.RunID)
	fmt.Fprintf(os.Stderr, "  Repositories:  %d of %d (%d from cache)\n", len(report.Repositories), len(cfg.Repositories), cached)
	fmt.Fprintf(os.Stderr, "  Facts:         %d\n", factCount)
	fmt.Fprintf(os.Stderr, "  Links:         %d\n", len(report.CrossRepo.Links))
	fmt.Fprintf(os.Stderr, "  Diagrams:      %d\n", len(report.Diagrams))
	fmt.Fprintf(os.Stderr, "  Insights:      %d\n", len(report.Insights))
	fmt.Fprintf(os.Stderr, "  Artifacts:     %d\n", len(eng.Artifacts()))
	fmt.Fprintf(os.Stderr, "  Duration:      %s\n", report.Duration)
	fmt.Fprintf(os.Stderr, "  Output:        %s\n", outDir)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	path := configPath(args)
	cfg, err := config.Load(path)
	if err != nil {
		// The server still answers queries on a previously written report.
		fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
		cfg = config.Default()
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Auto-load the last run so queries work without a generate_report call.
	// The fact stream alone still serves query_facts and show_source.
	reportPath := filepath.Join(cfg.Output.Dir, engine.ReportFile)
	factsPath := filepath.Join(cfg.Output.Dir, engine.FactsFile)
	loaded := false
	if _, err := os.Stat(reportPath); err == nil {
		log.Printf("[main] loading existing report from %s", reportPath)
		if err := eng.LoadReport(ctx, reportPath); err != nil {
			log.Printf("[main] warning: failed to load existing report: %v", err)
		} else {
			loaded = true
			log.Printf("[main] loaded %d facts from existing report", eng.Store().Count())
		}
	}
	if !loaded {
		if _, err := os.Stat(factsPath); err == nil {
			if err := eng.LoadFacts(factsPath); err != nil {
				log.Printf("[main] warning: failed to load existing facts: %v", err)
			}
		}
	}

	srv, err := server.New(eng, cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	addr, _ := cmd.Flags().GetString("http")
	if addr == "" {
		return srv.Run(ctx)
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid --http address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid --http port %q: %w", portStr, err)
	}
	if err := srv.RunHTTP(ctx, host, port); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
