// Package cli implements the memtree CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/evertrace/memtree/internal/config"
	"github.com/evertrace/memtree/internal/model"
	"github.com/evertrace/memtree/internal/review"
	"github.com/evertrace/memtree/internal/snapshot"
	"github.com/evertrace/memtree/internal/store"
)

var (
	cfgFile     string
	dbPath      string
	snapshotDir string
	sessionFlag string
	verbose     bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memtree",
	Short: "Versioned, path-addressed memory for AI agents",
	Long: `memtree stores agent memories as a tree of namespaced paths backed by
SQLite. Every content update becomes a new version; old versions stay
reviewable and recoverable. Session snapshots let a reviewer diff and
selectively roll back an agent's changes.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(func() {
		config.Init(cfgFile)
		initLogging()
	})

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./memtree.yaml or ~/.memtree/memtree.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MEMTREE_DB_PATH or ~/.memtree/memory.db)")
	RootCmd.PersistentFlags().StringVar(&snapshotDir, "snapshot-dir", "", "Snapshot directory (default: $MEMTREE_SNAPSHOT_DIR or ~/.memtree/snapshots)")
	RootCmd.PersistentFlags().StringVar(&sessionFlag, "session", "", "Session id for change tracking (default: $MEMTREE_SESSION or a fresh id)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging to stderr")
}

func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if snapshotDir != "" {
		cfg.SnapshotDir = snapshotDir
	}
	return cfg
}

func openStore() (*store.SQLiteStore, *config.Config) {
	cfg := loadConfig()
	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		exitErr("open store", err)
	}
	slog.Debug("store opened", "db", cfg.DBPath)
	return s, cfg
}

// sessionID resolves the snapshot session for this invocation: explicit
// flag, then environment, then a fresh id. Agents that want one session
// across many invocations export MEMTREE_SESSION.
func sessionID() string {
	if sessionFlag != "" {
		return sessionFlag
	}
	if env := viper.GetString("session"); env != "" {
		return env
	}
	return snapshot.NewSessionID()
}

func openEngine() (*review.Engine, *store.SQLiteStore, *config.Config) {
	s, cfg := openStore()
	snaps, err := snapshot.NewManager(cfg.SnapshotDir)
	if err != nil {
		exitErr("open snapshots", err)
	}
	return review.NewEngine(s, snaps, sessionID()), s, cfg
}

// parseURI resolves a URI argument against the configured namespaces.
func parseURI(cfg *config.Config, uri string) (ns, path string) {
	ns, path = model.ParseURI(uri)
	if !cfg.ValidNS(ns) {
		exitErr("parse uri", fmt.Errorf("unknown namespace %q, valid: %s",
			ns, strings.Join(cfg.Namespaces, ", ")))
	}
	return ns, path
}

// readContent takes content from positional args first, then stdin when
// piped.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
