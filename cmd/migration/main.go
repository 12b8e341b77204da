package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/riskibarqy/chefscore/internal/app"
	"github.com/riskibarqy/chefscore/internal/platform/logging"
)

var migrationDirCandidates = []string{"./db/migrations", "./migrations", "/app/db/migrations"}

func main() {
	logger := logging.NewConsole(os.Stderr, logging.ParseLevel(os.Getenv("APP_LOG_LEVEL")))
	if err := newRootCommand(logger).Execute(); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand(logger *logging.Logger) *cobra.Command {
	var dir string

	root := &cobra.Command{
		Use:           "migration",
		Short:         "Apply the chefscore postgres schema",
		Long:          "Runs the SQL files under db/migrations against DB_URL.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.HiddenDefaultCmd = true
	root.PersistentFlags().StringVar(&dir, "dir", "", "Migrations directory (default $MIGRATIONS_DIR or ./db/migrations)")

	withMigrator := func(run func(m *migrate.Migrate, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			m, source, err := newMigrator(dir)
			if err != nil {
				return err
			}
			defer closeMigrator(m, logger)

			logger.Debug("migrator ready", "source", source)
			return run(m, args)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(m *migrate.Migrate, _ []string) error {
				return report(logger, m.Up(), "migrations applied")
			}),
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back the last migration, or the given number of steps",
			Args:  cobra.MaximumNArgs(1),
			RunE: withMigrator(func(m *migrate.Migrate, args []string) error {
				steps, err := parseSteps(args)
				if err != nil {
					return err
				}
				return report(logger, m.Steps(-steps), "migrations rolled back", "steps", steps)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(m *migrate.Migrate, _ []string) error {
				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Println("version: none")
					fmt.Println("dirty: false")
					return nil
				}
				if err != nil {
					return fmt.Errorf("read version: %w", err)
				}
				fmt.Printf("version: %d\n", version)
				fmt.Printf("dirty: %t\n", dirty)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(m *migrate.Migrate, args []string) error {
				version, err := parseVersion(args[0])
				if err != nil {
					return err
				}
				if err := m.Force(version); err != nil {
					return fmt.Errorf("force version %d: %w", version, err)
				}
				logger.Info("forced schema version", "version", version)
				return nil
			}),
		},
		&cobra.Command{
			Use:     "goto <version>",
			Aliases: []string{"migrate"},
			Short:   "Migrate up or down to the given version",
			Args:    cobra.ExactArgs(1),
			RunE: withMigrator(func(m *migrate.Migrate, args []string) error {
				target, err := parseTarget(args[0])
				if err != nil {
					return err
				}
				return report(logger, m.Migrate(target), "migrated", "version", target)
			}),
		},
	)

	return root
}

func newMigrator(dir string) (*migrate.Migrate, string, error) {
	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		return nil, "", fmt.Errorf("DB_URL is required")
	}
	dbURL = app.NormalizeDBURL(dbURL, app.DBURLOptions{
		DisablePreparedBinaryResult: envBool("DB_DISABLE_PREPARED_BINARY_RESULT", true),
		ApplicationName:             "chefscore-migration",
	})

	migrationsDir, err := resolveMigrationsDir(dir)
	if err != nil {
		return nil, "", err
	}

	source := "file://" + filepath.ToSlash(migrationsDir)
	m, err := migrate.New(source, dbURL)
	if err != nil {
		return nil, "", fmt.Errorf("create migrator: %w", err)
	}
	return m, source, nil
}

func report(logger *logging.Logger, err error, msg string, args ...any) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migration changes")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info(msg, args...)
	return nil
}

func closeMigrator(m *migrate.Migrate, logger *logging.Logger) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logger.Warn("close migration source", "error", srcErr)
	}
	if dbErr != nil {
		logger.Warn("close migration db", "error", dbErr)
	}
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}

	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid down steps %q: %w", args[0], err)
	}
	if steps <= 0 {
		return 0, fmt.Errorf("down steps must be > 0")
	}
	return steps, nil
}

func parseVersion(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("version must be >= 0")
	}
	return value, nil
}

func parseTarget(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid target version %q: %w", raw, err)
	}
	return uint(value), nil
}

func resolveMigrationsDir(flagDir string) (string, error) {
	candidates := append([]string{
		strings.TrimSpace(flagDir),
		strings.TrimSpace(os.Getenv("MIGRATIONS_DIR")),
	}, migrationDirCandidates...)

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return abs, nil
		}
	}

	return "", fmt.Errorf("migration directory not found (checked --dir, MIGRATIONS_DIR, %s)", strings.Join(migrationDirCandidates, ", "))
}

func envBool(key string, fallback bool) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
