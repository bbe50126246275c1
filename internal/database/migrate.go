package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"go.uber.org/zap"

	"proficiency-scoring/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Direction selects the .up.sql or .down.sql scripts.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ORA-00955 (name already used) and ORA-00942 (table does not exist) make
// reruns of up and down scripts harmless.
var ignorableErrors = map[Direction]string{
	Up:   "ORA-00955",
	Down: "ORA-00942",
}

// RunMigrations executes every embedded migration script of the given
// direction, in name order for up and reverse order for down. Oracle runs
// one statement per call, so scripts are split on ";".
func RunMigrations(ctx context.Context, exec func(ctx context.Context, stmt string) error, dir Direction) error {
	scripts, err := scriptNames(dir)
	if err != nil {
		return err
	}

	for _, name := range scripts {
		content, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("could not read migration file %s: %w", name, err)
		}
		for _, stmt := range SplitStatements(string(content)) {
			if err := exec(ctx, stmt); err != nil {
				if strings.Contains(err.Error(), ignorableErrors[dir]) {
					logger.Get().Warn("Skipping already applied statement",
						zap.String("file", name), zap.Error(err))
					continue
				}
				return fmt.Errorf("could not execute migration %s: %w", name, err)
			}
		}
		logger.Get().Info("Executed migration", zap.String("file", name))
	}

	logger.Get().Info("Migrations completed successfully", zap.String("direction", string(dir)), zap.Int("files", len(scripts)))
	return nil
}

func scriptNames(dir Direction) ([]string, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("could not read migrations directory: %w", err)
	}
	suffix := "." + string(dir) + ".sql"
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if dir == Down {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}
	return names, nil
}

// SplitStatements breaks a script into statements without trailing ";".
func SplitStatements(script string) []string {
	var stmts []string
	for _, part := range strings.Split(script, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			stmts = append(stmts, part)
		}
	}
	return stmts
}
