package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"filesdash/xref/internal/config"
	"filesdash/xref/internal/db"
	"filesdash/xref/internal/logger"
)

// defaultDBName is looked for in the working directory and its parents.
const defaultDBName = "xref.db"

var (
	configPath string
	logLevel   string
	dbPath     string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "xref",
	Short:         "Cross-reference the Epstein files tables into dashboard documents",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading .env: %w", err)
		}
		if err := logger.Init(); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		return logger.SetLevelString(cfg.LogLevel)
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// addDBFlag registers --db on commands that read a snapshot database.
func addDBFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the snapshot database")
}

// DiscoverDB finds the snapshot database: --db flag, then the configured
// snapshot_db, then xref.db in the working directory or any parent.
func DiscoverDB() (string, error) {
	if dbPath != "" {
		if _, err := os.Stat(dbPath); err != nil {
			return "", fmt.Errorf("database not found at --db path: %s", dbPath)
		}
		return dbPath, nil
	}

	if cfg != nil && cfg.SnapshotDB != "" {
		if _, err := os.Stat(cfg.SnapshotDB); err == nil {
			return cfg.SnapshotDB, nil
		}
	}

	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, defaultDBName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	return "", fmt.Errorf("no %s found (use --db, set snapshot_db, or run `xref build --db FILE` first)", defaultDBName)
}

// OpenDatabase discovers and opens the snapshot database
func OpenDatabase() (*db.DB, error) {
	path, err := DiscoverDB()
	if err != nil {
		return nil, err
	}
	return db.OpenDB(path)
}

// ResolvePerson finds a person by full ID, ID prefix, or name search.
func ResolvePerson(d *db.DB, reference string) (*db.Person, error) {
	// 1. Exact ID match
	person, err := d.GetPerson(reference)
	if err == nil && person != nil {
		return person, nil
	}

	// 2. ID prefix match (>=3 slug chars)
	if len(reference) >= 3 && isSlug(reference) {
		matches, err := d.SearchByIDPrefix(reference, 10)
		if err == nil {
			switch len(matches) {
			case 1:
				return d.GetPerson(matches[0].ID)
			case 0:
				// fall through to FTS
			default:
				return nil, ambiguous(reference, matches, "Use a full person ID instead.")
			}
		}
	}

	// 3. FTS over names and aliases
	results, err := d.SearchPersons(reference, 10)
	if err == nil {
		switch len(results) {
		case 1:
			return d.GetPerson(results[0].ID)
		case 0:
		default:
			return nil, ambiguous(reference, results, "Use a person ID instead.")
		}
	}

	return nil, fmt.Errorf("person not found: %s", reference)
}

func ambiguous(reference string, matches []db.Person, hint string) error {
	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = fmt.Sprintf("  %s %s", m.ID, m.Name)
	}
	return fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\n%s",
		reference, len(matches), strings.Join(lines, "\n"), hint)
}

// isSlug reports whether s looks like a person ID: lowercase letters, digits and dashes.
func isSlug(s string) bool {
	for _, c := range s {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-') {
			return false
		}
	}
	return true
}
