// ABOUTME: Migration utility for databases written before cycle statuses were canonical
// ABOUTME: Normalizes legacy status spellings, reports open-cycle conflicts, then installs the constraints

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/harperreed/canvass/db"
	"github.com/harperreed/canvass/logging"
	"go.uber.org/zap"
)

// errConflicts means open-cycle duplicates must be resolved by hand first.
var errConflicts = errors.New("active cycle conflicts must be resolved before the constraints can be created")

func main() {
	dbPath := flag.String("db", "", "Path to database file (required)")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Create backup before migration")
	flag.Parse()

	logger, err := logging.New(logging.Options{Level: "info"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *dbPath == "" {
		logger.Fatal("-db flag is required")
	}

	if err := migrate(context.Background(), logger, *dbPath, *dryRun, *backup); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	logger.Info("migration completed successfully")
}

func migrate(ctx context.Context, logger *zap.Logger, dbPath string, dryRun, createBackup bool) error {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("database file does not exist: %s", dbPath)
	}

	if createBackup && !dryRun {
		backupPath := fmt.Sprintf("%s.backup.%s", dbPath, time.Now().Format("20060102-150405"))
		if err := copyFile(dbPath, backupPath); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
		logger.Info("backup created", zap.String("path", backupPath))
	}

	database, err := db.Connect(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	// Tables missing from older databases are created; constraints wait
	// until the data satisfies them.
	if !dryRun {
		if err := db.InitTables(database); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	changes, err := db.NormalizeStatuses(ctx, database, dryRun)
	if err != nil {
		return err
	}
	unknown := 0
	for _, c := range changes {
		if c.Unknown {
			unknown++
			logger.Warn("unknown cycle status left unchanged",
				zap.Stringer("cycle_id", c.CycleID), zap.String("status", c.From))
			continue
		}
		logger.Info("cycle status normalized",
			zap.Stringer("cycle_id", c.CycleID),
			zap.String("from", c.From),
			zap.String("to", string(c.To)),
			zap.Bool("dry_run", dryRun))
	}

	conflicts, err := db.ActiveConflicts(ctx, database)
	if err != nil {
		return err
	}
	for _, c := range conflicts {
		logger.Warn("prospect has more than one open cycle",
			zap.Stringer("prospect_id", c.ProspectID),
			zap.Int64("staff_id", c.StaffID),
			zap.Int("open_cycles", c.Count))
	}

	if dryRun {
		logger.Info("dry run finished",
			zap.Int("normalized", len(changes)-unknown),
			zap.Int("unknown", unknown),
			zap.Int("conflicts", len(conflicts)))
		return nil
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("%w (%d found)", errConflicts, len(conflicts))
	}

	if err := db.InitSchema(database); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Info("constraints installed")
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
