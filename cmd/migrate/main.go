package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/ogurasousui/employee-records/internal/platform/config"
	"github.com/ogurasousui/employee-records/internal/platform/logger"
)

func main() {
	var (
		configPath    = flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
		migrationsDir = flag.String("dir", "assets/migrations", "directory containing migration files")
	)
	flag.Parse()

	action := "up"
	if flag.NArg() > 0 {
		action = flag.Arg(0)
	}

	log := logger.Init(logger.Options{Level: os.Getenv("APP_LOG_LEVEL"), Pretty: true})

	cfgPath := effectiveConfigPath(*configPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfgPath).Msg("failed to load config")
	}

	if err := runMigration(action, *migrationsDir, cfg.Database.DSN()); err != nil {
		log.Fatal().Err(err).Str("action", action).Msg("migration failed")
	}

	log.Info().Str("action", action).Msg("migration completed")
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}

// runMigration は dir 配下のマイグレーションを action に従って適用します。
// steps アクションは "steps:N" 形式で N 件だけ進めるか戻します。force は "force:N" で dirty 状態を解除します。
func runMigration(action, dir, dsn string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve path for %s: %w", dir, err)
	}
	absDir = filepath.ToSlash(absDir)

	m, err := migrate.New(fmt.Sprintf("file://%s", absDir), dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	log := logger.Get()

	switch {
	case action == "up":
		return ignoreNoChange(m.Up())
	case action == "down":
		return ignoreNoChange(m.Down())
	case action == "drop":
		return m.Drop()
	case action == "version":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				log.Info().Msg("no migration applied")
				return nil
			}
			return err
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("current migration version")
		return nil
	case strings.HasPrefix(action, "steps:"):
		n, err := strconv.Atoi(strings.TrimPrefix(action, "steps:"))
		if err != nil || n == 0 {
			return fmt.Errorf("invalid steps action %q", action)
		}
		return ignoreNoChange(m.Steps(n))
	case strings.HasPrefix(action, "force:"):
		v, err := strconv.Atoi(strings.TrimPrefix(action, "force:"))
		if err != nil {
			return fmt.Errorf("invalid force action %q", action)
		}
		return m.Force(v)
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
