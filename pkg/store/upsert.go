// pkg/store/upsert.go
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/danexplore/JiraSQL/pkg/model"
)

// upsertSQL builds a named INSERT that overwrites every mutable column
// when the primary key already exists
func upsertSQL(table model.TableMetadata) string {
	cols := upsertColumns(table)

	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	var updates []string
	for i, col := range cols {
		quoted[i] = quoteIdent(col)
		params[i] = ":" + col
		if !table.IsPrimaryKey(col) {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", quoteIdent(col), quoteIdent(col)))
		}
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		quoteIdent(table.Table),
		strings.Join(quoted, ", "),
		strings.Join(params, ", "),
		quoteIdents(table.PrimaryKeys),
		strings.Join(updates, ", "))
}

// upsertRecords writes records one statement each through a prepared
// named statement
func upsertRecords[T any](ctx context.Context, tx *sqlx.Tx, table model.TableMetadata, records []T) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareNamedContext(ctx, upsertSQL(table))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert into %s: %w", table.Table, err)
	}
	defer stmt.Close()

	var affected int64
	for i := range records {
		res, err := stmt.ExecContext(ctx, &records[i])
		if err != nil {
			return affected, fmt.Errorf("failed to upsert record %d into %s: %w", i, table.Table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			affected += n
		}
	}
	return affected, nil
}

// distinctCourses returns the (course, entity) pairs of a batch, sorted
func distinctCourses(items []model.WorkItem) []model.Course {
	seen := make(map[[2]string]bool)
	var courses []model.Course
	for _, item := range items {
		key := [2]string{item.Course, item.Entity}
		if item.Course == "" || seen[key] {
			continue
		}
		seen[key] = true
		courses = append(courses, model.Course{
			Name:    item.Course,
			Entity:  item.Entity,
			Version: model.CourseVersion(item.Entity),
		})
	}

	sort.Slice(courses, func(i, j int) bool {
		if courses[i].Entity != courses[j].Entity {
			return courses[i].Entity < courses[j].Entity
		}
		return courses[i].Name < courses[j].Name
	})
	return courses
}

const upsertCourseSQL = `INSERT INTO cursos (nome_curso, entidade, versao) VALUES (?, ?, ?)
	ON CONFLICT (nome_curso, entidade) DO UPDATE SET versao = excluded.versao`

func upsertCourses(ctx context.Context, tx *sqlx.Tx, courses []model.Course) (int64, error) {
	query := tx.Rebind(upsertCourseSQL)
	var affected int64
	for _, c := range courses {
		res, err := tx.ExecContext(ctx, query, c.Name, c.Entity, c.Version)
		if err != nil {
			return affected, fmt.Errorf("failed to upsert course %q (%s): %w", c.Name, c.Entity, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			affected += n
		}
	}
	return affected, nil
}

// latestCoordinators returns one row per canonical coordinator of a batch,
// sorted by name. When several records name the same coordinator, the
// record with the greatest key decides the master.
func latestCoordinators(items []model.WorkItem) []model.Coordinator {
	ordered := make([]int, len(items))
	for i := range ordered {
		ordered[i] = i
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		return items[ordered[a]].Key < items[ordered[b]].Key
	})

	masters := make(map[string]string)
	for _, i := range ordered {
		item := items[i]
		if item.CanonicalCoordinator == nil {
			continue
		}
		masters[*item.CanonicalCoordinator] = model.MasterFor(item.CoordinatorMaster)
	}

	coordinators := make([]model.Coordinator, 0, len(masters))
	for name, master := range masters {
		coordinators = append(coordinators, model.Coordinator{Name: name, Master: master})
	}
	sort.Slice(coordinators, func(i, j int) bool {
		return coordinators[i].Name < coordinators[j].Name
	})
	return coordinators
}

const upsertCoordinatorSQL = `INSERT INTO coordenadores (coordenador, coordenador_master) VALUES (?, ?)
	ON CONFLICT (coordenador) DO UPDATE SET coordenador_master = excluded.coordenador_master`

func upsertCoordinators(ctx context.Context, tx *sqlx.Tx, coordinators []model.Coordinator) (int64, error) {
	query := tx.Rebind(upsertCoordinatorSQL)
	var affected int64
	for _, c := range coordinators {
		res, err := tx.ExecContext(ctx, query, c.Name, c.Master)
		if err != nil {
			return affected, fmt.Errorf("failed to upsert coordinator %q: %w", c.Name, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			affected += n
		}
	}
	return affected, nil
}
