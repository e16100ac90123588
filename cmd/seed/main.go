// Command seed loads a curriculum file into the database:
//
//	go run ./cmd/seed -db data/learnpath.db -catalog catalog.example.yaml
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/learnpath/internal/catalog"
	"github.com/sakif/learnpath/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/learnpath.db", "SQLite database file")
	catalogPath := flag.String("catalog", "catalog.yaml", "curriculum file to load")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := run(*dbPath, *catalogPath, logger); err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(dbPath, catalogPath string, logger *slog.Logger) error {
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return err
	}
	db, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := catalog.Seed(context.Background(), db, cat)
	if err != nil {
		return err
	}

	logger.Info("catalog seeded",
		slog.String("database", dbPath),
		slog.Int("tracks", st.Tracks),
		slog.Int("courses", st.Courses),
		slog.Int("lessons", st.Lessons),
	)
	return nil
}
