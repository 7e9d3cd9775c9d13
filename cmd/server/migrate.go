package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	dbstore "github.com/soaringjerry/Encuesta/internal/db"
	"github.com/soaringjerry/Encuesta/internal/services"
	"gorm.io/gorm"
)

// MigrateAndImport applies pending migrations and, when schemaPath is set,
// imports the survey schema document. Surveys already present are skipped,
// so restarting with the same file is a no-op.
func MigrateAndImport(ctx context.Context, gdb *gorm.DB, store *dbstore.Store, migrationsDir, schemaPath string) error {
	if err := dbstore.RunMigrations(gdb, migrationsDir); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if schemaPath == "" {
		return nil
	}
	f, err := os.Open(schemaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("schema file %s not found, skipping import", schemaPath)
			return nil
		}
		return fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()

	doc, err := services.DecodeSchema(f)
	if err != nil {
		return err
	}
	report, err := services.NewImportService(store).Import(ctx, doc)
	if err != nil {
		return fmt.Errorf("import schema %s: %w", schemaPath, err)
	}
	log.Printf("schema import: created=%v skipped=%v tokens=%d interviewers=%d locations=%d",
		report.Created, report.Skipped, report.Tokens, report.Interviewers, report.Locations)
	return nil
}
