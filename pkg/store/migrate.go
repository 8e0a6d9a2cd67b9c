// pkg/store/migrate.go
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/model"
)

// ensureSchemaStep creates the managed tables, adds the columns missing
// from tables created by older releases and recreates the reporting view.
// It returns the number of added columns.
func (e *Engine) ensureSchemaStep(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	var added int64
	for _, table := range Tables {
		if _, err := tx.ExecContext(ctx, e.dialect.createTableSQL(table)); err != nil {
			return added, fmt.Errorf("failed to create table %s: %w", table.Table, err)
		}

		n, err := e.addMissingColumns(ctx, tx, table)
		if err != nil {
			return added, err
		}
		added += n
	}

	if _, err := tx.ExecContext(ctx, "DROP VIEW IF EXISTS "+ViewProduction); err != nil {
		return added, fmt.Errorf("failed to drop view %s: %w", ViewProduction, err)
	}
	if _, err := tx.ExecContext(ctx, productionViewSQL); err != nil {
		return added, fmt.Errorf("failed to create view %s: %w", ViewProduction, err)
	}

	return added, nil
}

func (e *Engine) addMissingColumns(ctx context.Context, tx *sqlx.Tx, table model.TableMetadata) (int64, error) {
	var existing []string
	if err := tx.SelectContext(ctx, &existing, tx.Rebind(e.dialect.existingColumnsQuery()), table.Table); err != nil {
		return 0, fmt.Errorf("failed to list columns of %s: %w", table.Table, err)
	}

	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	var added int64
	for _, col := range table.Columns {
		if present[col.Name] {
			continue
		}
		if _, err := tx.ExecContext(ctx, e.dialect.addColumnSQL(table.Table, col)); err != nil {
			return added, fmt.Errorf("failed to add column %s.%s: %w", table.Table, col.Name, err)
		}
		e.logger.Info("Added missing column",
			zap.String("table", table.Table),
			zap.String("column", col.Name))
		added++
	}
	return added, nil
}
