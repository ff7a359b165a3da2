// Package main is the dentsearch CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/cache"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/config"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/provider"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/research"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/search"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/server"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/sweeper"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/telemetry"
	"github.com/rickoslyder/DentistryExplained-sub002/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/dentsearch/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory so running from the project dir
// uses the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "sweep":
		runSweep()
	case "stats":
		runStats()
	case "clear":
		runClear()
	case "version", "--version", "-v":
		fmt.Printf("dentsearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// buildAdapters constructs the provider set from credentials. The deep
// research adapter falls back to Exa when its service is unhealthy.
func buildAdapters(pc config.ProvidersConfig, logger *zap.Logger) []provider.Adapter {
	perplexity := provider.NewPerplexity(pc.PerplexityAPIKey, logger)
	exa := provider.NewExa(pc.ExaAPIKey, logger)
	deep := provider.NewDeepResearch(pc.ResearchServiceURL, pc.ResearchServiceToken, exa, logger)
	return []provider.Adapter{perplexity, exa, deep}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	store, err := cache.NewSQLiteStore(cfg.Storage.CacheDatabasePath)
	if err != nil {
		logger.Fatal("Failed to open cache store", zap.Error(err))
	}
	defer store.Close()

	var sink telemetry.Sink = telemetry.NopSink{}
	if cfg.Telemetry.EnabledOrDefault() {
		sqlSink, err := telemetry.NewSQLiteSink(cfg.Storage.TelemetryDatabasePath)
		if err != nil {
			logger.Warn("Failed to open telemetry store, telemetry disabled", zap.Error(err))
		} else {
			sink = sqlSink
			defer sqlSink.Close()
		}
	}

	svc := search.NewService(
		buildAdapters(cfg.Providers, logger),
		store,
		sink,
		logger,
		search.WithTTL(time.Duration(cfg.Cache.TTLHours)*time.Hour),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweep, err := sweeper.New(store, cfg.Cache.SweepSchedule, logger)
	if err != nil {
		logger.Fatal("Invalid sweep schedule", zap.Error(err))
	}
	sweep.Start(ctx)
	defer sweep.Stop()

	cfgWatch := config.NewWatcher(resolvedConfigPath, func(next *config.Config) {
		svc.ReplaceAdapters(buildAdapters(next.Providers, logger))
	}, logger)
	if err := cfgWatch.Start(ctx); err != nil {
		logger.Warn("Config watch unavailable", zap.Error(err))
	} else {
		defer cfgWatch.Stop()
	}

	srv := server.NewServer(svc, research.NewClient(svc), store, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	searchType := fs.String("type", "general", "search type: general, medical, news, academic")
	maxResults := fs.Int("limit", 10, "number of results")
	deep := fs.Bool("deep", false, "force the deep-research provider")
	outputJSON := fs.Bool("json", false, "print raw JSON response")
	_ = fs.Parse(os.Args[2:])

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Println("Usage: dentsearch search [flags] <query>")
		fs.PrintDefaults()
		os.Exit(1)
	}

	reqBody := map[string]interface{}{
		"query": query,
		"options": models.SearchOptions{
			MaxResults:        *maxResults,
			SearchType:        models.SearchType(*searchType),
			ForceDeepResearch: *deep,
		},
	}
	payload, _ := json.Marshal(reqBody)
	resp, err := http.Post(strings.TrimRight(*serverURL, "/")+"/api/v1/search", "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var result models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Fprintf(os.Stderr, "Bad response: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Search failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}

	if *outputJSON {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return
	}

	cachedNote := ""
	if result.IsCached {
		cachedNote = " (cached)"
	}
	fmt.Printf("%d results for %q%s\n\n", result.TotalResults, result.Query, cachedNote)
	for i, r := range result.Results {
		fmt.Printf("%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Printf("   %s\n", r.Snippet)
		}
		fmt.Println()
	}
}

// openStore opens the cache store for the maintenance subcommands.
func openStore(configPath string) (*cache.SQLiteStore, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return cache.NewSQLiteStore(cfg.Storage.CacheDatabasePath)
}

func runSweep() {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	store, err := openStore(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open cache: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	removed, err := store.SweepExpired(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sweep failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %d expired entries\n", removed)
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	store, err := openStore(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open cache: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Entries: %d\n", stats.TotalEntries)
	if stats.OldestEntry != nil {
		fmt.Printf("Oldest:  %s\n", stats.OldestEntry.Format(time.RFC3339))
	}
	if stats.NewestEntry != nil {
		fmt.Printf("Newest:  %s\n", stats.NewestEntry.Format(time.RFC3339))
	}
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	yes := fs.Bool("yes", false, "skip confirmation")
	_ = fs.Parse(os.Args[2:])

	if !*yes {
		fmt.Print("Clear the entire search cache? [y/N] ")
		var answer string
		_, _ = fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted")
			return
		}
	}

	store, err := openStore(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open cache: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Clear(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Clear failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Cache cleared")
}

func printUsage() {
	fmt.Println(`dentsearch - multi-provider dental search with a persisted cache

Usage:
  dentsearch server [-config path] [-debug]    start the HTTP API server
  dentsearch search [flags] <query>            run a search against a server
  dentsearch sweep [-config path]              purge expired cache entries
  dentsearch stats [-config path]              show cache statistics
  dentsearch clear [-config path] [-yes]       wipe the cache
  dentsearch version                           print version
  dentsearch help                              show this help`)
}
