package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// RunMigrations applies every *.up.sql file in dir in lexical order.
// Statements that fail because an object already exists are skipped.
func RunMigrations(ctx context.Context, db DBTX, dir string, log *zap.Logger) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to glob migration files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %s", dir)
	}

	sort.Strings(files)

	for _, file := range files {
		log.Info("running migration", zap.String("file", file))
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := db.Exec(ctx, string(content)); err != nil {
			if strings.Contains(err.Error(), "already exists") {
				log.Warn("migration already applied", zap.String("file", file), zap.Error(err))
				continue
			}
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}

	return nil
}
