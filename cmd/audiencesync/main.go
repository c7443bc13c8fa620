package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/OrelsProjects/articles-generator-sub002/internal/config"
	"github.com/OrelsProjects/articles-generator-sub002/internal/crawl"
	"github.com/OrelsProjects/articles-generator-sub002/internal/jobs"
	"github.com/OrelsProjects/articles-generator-sub002/internal/metrics"
	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
	"github.com/OrelsProjects/articles-generator-sub002/internal/profiles"
	"github.com/OrelsProjects/articles-generator-sub002/internal/rank"
	"github.com/OrelsProjects/articles-generator-sub002/internal/reactors"
	"github.com/OrelsProjects/articles-generator-sub002/internal/store/sqlitedb"
	"github.com/OrelsProjects/articles-generator-sub002/internal/substack"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "sync":
		cmdSync()
	case "engagers":
		cmdEngagers()
	case "profiles":
		cmdProfiles()
	case "serve":
		cmdServe()
	default:
		printHelp()
	}
}

func printHelp() {
	fmt.Println("Usage: audiencesync <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./audiencesync.yaml")
	fmt.Println("  sync        Crawl one author's comment history into the store")
	fmt.Println("  engagers    Score and rank a publication's engagers")
	fmt.Println("  profiles    Refresh cached profiles for given user ids")
	fmt.Println("  serve       Run the sync loop with the metrics server")
}

type app struct {
	cfg      config.Config
	client   *substack.Client
	db       *sqlitedb.DB
	crawler  *crawl.Crawler
	enricher *profiles.Enricher
	agg      *reactors.Aggregator
	orch     *rank.Orchestrator
}

func mustLoadApp(cfgPath string) *app {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	if cfg.Upstream.Cookie == "" {
		fmt.Println("warning: missing SUBSTACK_COOKIE; authenticated endpoints will fail")
	}
	db, err := sqlitedb.Open(cfg.Storage.DBPath)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	client := substack.NewClient(cfg.Upstream)
	enricher := profiles.NewEnricher(client, db)
	agg := reactors.NewAggregator(client, enricher, db)
	return &app{
		cfg:      cfg,
		client:   client,
		db:       db,
		crawler:  crawl.New(client, db, crawl.CalendarStreak{}),
		enricher: enricher,
		agg:      agg,
		orch:     rank.NewOrchestrator(client, agg, db),
	}
}

func (a *app) close() {
	a.agg.Wait()
	_ = a.db.Close()
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./audiencesync.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	if err := config.Save(*path, config.Default()); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	abs, _ := filepath.Abs(*path)
	fmt.Println("Config written to:", abs)
}

func cmdSync() {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	cfgPath := fs.String("config", "./audiencesync.yaml", "config path")
	author := fs.Int64("author", 0, "author id (defaults to configured account)")
	_ = fs.Parse(os.Args[2:])
	a := mustLoadApp(*cfgPath)
	defer a.close()
	authorID := *author
	if authorID == 0 {
		authorID = a.cfg.Account.AuthorID
	}
	opts := crawl.Options{MaxNotes: a.cfg.Crawl.MaxNotes, MarginOfSafety: a.cfg.Crawl.MarginOfSafety}
	res, err := jobs.SyncAuthorNotes(context.Background(), a.crawler, a.db, authorID, opts)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Printf("synced author %d: %d total, %d new (%s)\n", authorID, len(res.AllNotes), len(res.NewNotes), res.StopReason)
}

func cmdEngagers() {
	fs := flag.NewFlagSet("engagers", flag.ExitOnError)
	cfgPath := fs.String("config", "./audiencesync.yaml", "config path")
	pub := fs.String("publication", "", "publication id (defaults to configured account)")
	top := fs.Int("top", 20, "candidates to print")
	_ = fs.Parse(os.Args[2:])
	a := mustLoadApp(*cfgPath)
	defer a.close()
	pubID := *pub
	if pubID == "" {
		pubID = a.cfg.Account.PublicationID
	}
	var exclude int64
	if a.cfg.Account.ExcludeSelf {
		exclude = a.cfg.Account.AuthorID
	}
	candidates, err := jobs.RefreshEngagers(context.Background(), a.orch, pubID, exclude)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	for i := 0; i < len(candidates) && i < *top; i++ {
		c := candidates[i]
		fmt.Printf("user=%d score=%d following=%t subscribed=%t tier=%d %s\n",
			c.UserID, c.Score, c.IsFollowing, c.IsSubscribed, c.BestsellerTier, c.Name)
	}
}

func cmdProfiles() {
	fs := flag.NewFlagSet("profiles", flag.ExitOnError)
	cfgPath := fs.String("config", "./audiencesync.yaml", "config path")
	ids := fs.String("ids", "", "comma-separated user ids")
	_ = fs.Parse(os.Args[2:])
	a := mustLoadApp(*cfgPath)
	defer a.close()
	var candidates []model.Reactor
	for _, p := range strings.Split(*ids, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			fmt.Println("skipping bad id:", p)
			continue
		}
		candidates = append(candidates, model.Reactor{UserID: id})
	}
	if err := a.enricher.RefreshProfiles(context.Background(), candidates); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Printf("refresh requested for %d profiles\n", len(candidates))
}

func cmdServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "./audiencesync.yaml", "config path")
	interval := fs.Duration("interval", time.Hour, "sync interval")
	_ = fs.Parse(os.Args[2:])
	a := mustLoadApp(*cfgPath)
	defer a.close()
	metrics.StartServer(a.cfg.Metrics.Addr)
	opts := crawl.Options{MaxNotes: a.cfg.Crawl.MaxNotes, MarginOfSafety: a.cfg.Crawl.MarginOfSafety}
	if err := jobs.RunSyncLoop(context.Background(), a.crawler, a.db, a.cfg.Account.AuthorID, opts, *interval); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
