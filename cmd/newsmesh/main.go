package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pcharbon/newsmesh/internal/collect"
	"github.com/pcharbon/newsmesh/internal/config"
	"github.com/pcharbon/newsmesh/internal/database"
	"github.com/pcharbon/newsmesh/internal/enrich"
	"github.com/pcharbon/newsmesh/internal/relations"
	"github.com/pcharbon/newsmesh/internal/scheduler"
	"github.com/pcharbon/newsmesh/internal/summary"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newsmesh",
	Short:   "Feed collection and source-relation analysis",
	Long:    "newsmesh collects RSS/Atom feeds, normalizes and deduplicates articles, and derives daily relations between news sources.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(relationsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(sourcesCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsmesh", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newsmesh/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds and the summarization provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and collection health",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n\n", today())
		fmt.Println("Sources:")
		fmt.Printf("  Configured: %d\n", stats.TotalSources)
		fmt.Printf("  Active: %d\n", stats.ActiveSources)
		fmt.Println("\nArticles:")
		fmt.Printf("  Total collected: %d\n", stats.TotalArticles)
		fmt.Printf("  Last 24h: %d\n", stats.Articles24h)
		fmt.Printf("  Days with data: %d\n", stats.DaysWithData)
		if stats.LastFetchedAt != nil {
			fmt.Printf("  Last fetch: %s\n", *stats.LastFetchedAt)
		}
		return nil
	},
}

// --- collect command ---

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one collection cycle over all active sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := bootstrapSources(db); err != nil {
			return err
		}

		fmt.Println("Collecting articles from sources...")
		result := newCollector(db).RunCycle(cmd.Context())

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Sources succeeded: %d\n", result.Success)
		fmt.Printf("  Sources failed: %d\n", result.Failed)
		fmt.Printf("  Articles stored: %d\n", result.Articles)
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the collection loop until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := bootstrapSources(db); err != nil {
			return err
		}

		collector := newCollector(db)
		sched := scheduler.New()
		if err := sched.Every(cfg.CollectInterval(), "collect", func(ctx context.Context) {
			collector.RunCycle(ctx)
		}); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Collecting every %s. Press Ctrl+C to stop.\n", cfg.CollectInterval())
		// First cycle right away; the scheduler only fires after one interval.
		collector.RunCycle(ctx)
		sched.Run(ctx)
		return nil
	},
}

// --- relations command ---

var (
	relDate      string
	relKind      string
	relMinWeight float64
	relLimit     int
)

var relationsCmd = &cobra.Command{
	Use:   "relations",
	Short: "Compute source relations for a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		date := relDate
		if date == "" {
			date = today()
		}

		rels, err := relations.NewAnalyzer(db).Analyze(date, relKind, relMinWeight, relLimit)
		if err != nil {
			return err
		}

		if len(rels) == 0 {
			fmt.Printf("No %s relations found for %s.\n", relKind, date)
			return nil
		}

		fmt.Printf("%s relations for %s:\n\n", relKind, date)
		for _, r := range rels {
			fmt.Printf("  %6.2f  %s <-> %s  (%s)\n", r.Weight, r.SrcDomain, r.DstDomain, r.Kind)
		}
		return nil
	},
}

func init() {
	relationsCmd.Flags().StringVar(&relDate, "date", "", "Target date (YYYY-MM-DD, default today)")
	relationsCmd.Flags().StringVar(&relKind, "kind", relations.KindCoCoverage,
		"Relation kind: co_coverage, temporal_correlation or topic_similarity")
	relationsCmd.Flags().Float64Var(&relMinWeight, "min-weight", 1.0, "Minimum relation weight")
	relationsCmd.Flags().IntVar(&relLimit, "limit", 100, "Maximum relations returned")
}

// --- stats command ---

var statsDate string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the source network for a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		date := statsDate
		if date == "" {
			date = today()
		}

		stats, err := relations.NewAnalyzer(db).NetworkStats(date)
		if err != nil {
			return err
		}

		fmt.Printf("Network for %s:\n", stats.Date)
		fmt.Printf("  Sources: %d\n", stats.TotalSources)
		fmt.Printf("  Articles: %d\n", stats.TotalArticles)
		fmt.Printf("  Unique topics: %d\n\n", stats.TotalUniqueTopics)
		for _, s := range stats.Sources {
			fmt.Printf("  %-30s %4d articles  %v\n", s.Domain, s.ArticleCount, s.Topics)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsDate, "date", "", "Target date (YYYY-MM-DD, default today)")
}

// --- summarize command ---

var (
	sumDate  string
	sumCount int
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Synthesize a short digest of a date's articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		date := sumDate
		if date == "" {
			date = today()
		}

		articles, err := db.ArticlesForDate(date)
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			fmt.Printf("No articles for %s.\n", date)
			return nil
		}
		if len(articles) > sumCount {
			articles = articles[:sumCount]
		}

		docs := make([]string, 0, len(articles))
		for _, a := range articles {
			doc := a.Title
			if a.SummaryFeed != nil {
				doc += ". " + *a.SummaryFeed
			}
			docs = append(docs, doc)
		}

		s := summary.NewLLM(
			cfg.Summarization.Provider,
			cfg.Summarization.Model,
			cfg.Summarization.OllamaURL,
			cfg.Summarization.OpenAIModel,
			cfg.Summarization.APIKeyEnv,
		)
		digest, err := s.Synthesize(cmd.Context(), docs, "en", cfg.Summarization.MaxWords)
		if err != nil {
			return err
		}

		fmt.Printf("Digest for %s (%d articles):\n\n%s\n", date, len(articles), digest)
		return nil
	},
}

func init() {
	summarizeCmd.Flags().StringVar(&sumDate, "date", "", "Target date (YYYY-MM-DD, default today)")
	summarizeCmd.Flags().IntVar(&sumCount, "count", 10, "Maximum articles to synthesize")
}

// --- sources command ---

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage collection sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		sources, err := db.ListSources()
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			fmt.Println("No sources. Add them to the config and run: newsmesh sources refresh")
			return nil
		}

		for _, s := range sources {
			icon := " "
			if s.Active {
				icon = "*"
			}
			fmt.Printf("  [%d] %s %s (%s, every %dm", s.ID, icon, s.Name, s.SiteDomain, s.FrequencyMinutes)
			if s.Enrichment == "html" {
				fmt.Print(", enriched")
			}
			fmt.Println(")")
		}
		return nil
	},
}

var sourcesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Upsert sources from the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := bootstrapSources(db); err != nil {
			return err
		}
		fmt.Printf("Refreshed %d sources from config.\n", len(cfg.Sources))
		return nil
	},
}

var sourcesDisableCmd = &cobra.Command{
	Use:   "disable [id]",
	Short: "Deactivate a source until the next refresh",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setSourceActive(args[0], false) },
}

var sourcesEnableCmd = &cobra.Command{
	Use:   "enable [id]",
	Short: "Reactivate a source",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setSourceActive(args[0], true) },
}

func setSourceActive(rawID string, active bool) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid source ID: %s", rawID)
	}
	if err := db.SetSourceActive(id, active); err != nil {
		return fmt.Errorf("source %d: %w", id, err)
	}

	state := "disabled"
	if active {
		state = "enabled"
	}
	fmt.Printf("Source [%d] %s\n", id, state)
	return nil
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesRefreshCmd)
	sourcesCmd.AddCommand(sourcesDisableCmd)
	sourcesCmd.AddCommand(sourcesEnableCmd)
}

// bootstrapSources upserts every configured source, reactivating ones that
// were disabled by hand but are still listed in the config.
func bootstrapSources(db *database.DB) error {
	for _, s := range cfg.Sources {
		if s.FeedURL == "" || s.SiteDomain == "" {
			log.Printf("Skipping source %q: feed_url and site_domain are required", s.Name)
			continue
		}
		if _, err := db.UpsertSource(database.Source{
			Name:             s.Name,
			FeedURL:          s.FeedURL,
			SiteDomain:       s.SiteDomain,
			Enrichment:       s.Enrichment,
			FrequencyMinutes: s.FrequencyMinutes,
		}); err != nil {
			return fmt.Errorf("bootstrapping source %q: %w", s.Name, err)
		}
	}
	return nil
}

func newCollector(db *database.DB) *collect.Collector {
	fetcher := collect.NewFetcher(cfg.FetchTimeout(), cfg.Collector.UserAgent)
	extractor := enrich.NewExtractor(cfg.FetchTimeout(), cfg.Collector.UserAgent)
	return collect.NewCollector(db, fetcher, extractor, cfg.Pace())
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "newsmesh.db")
	return database.Open(dbPath)
}
