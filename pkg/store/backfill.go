// pkg/store/backfill.go
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// scopeFilter returns the watermark predicate on column and its argument
func scopeFilter(column string, scope Scope) (string, []interface{}) {
	if !scope.Scoped() {
		return "", nil
	}
	return " AND " + column + " >= ?", []interface{}{scope.Watermark.String()}
}

func execUpdate(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (int64, error) {
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// backfillCourseFK links the rows of table to the course of their
// (curso, entidade) pair
func backfillCourseFK(ctx context.Context, tx *sqlx.Tx, table string, scope Scope) (int64, error) {
	match := fmt.Sprintf("c.nome_curso = %[1]s.curso AND c.entidade = %[1]s.entidade", table)
	filter, args := scopeFilter(table+".data_atualizacao", scope)

	query := fmt.Sprintf(`UPDATE %[1]s SET curso_id = (SELECT c.id FROM cursos c WHERE %[2]s)
		WHERE EXISTS (SELECT 1 FROM cursos c WHERE %[2]s)%[3]s`, table, match, filter)

	n, err := execUpdate(ctx, tx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill course ids on %s: %w", table, err)
	}
	return n, nil
}

// backfillCoordinatorFK links the rows of table to the coordinator of
// their canonical coordinator name
func backfillCoordinatorFK(ctx context.Context, tx *sqlx.Tx, table string, scope Scope) (int64, error) {
	match := fmt.Sprintf("co.coordenador = %s.coordenador_canonico", table)
	filter, args := scopeFilter(table+".data_atualizacao", scope)

	query := fmt.Sprintf(`UPDATE %[1]s SET coordenador_id = (SELECT co.id FROM coordenadores co WHERE %[2]s)
		WHERE EXISTS (SELECT 1 FROM coordenadores co WHERE %[2]s)%[3]s`, table, match, filter)

	n, err := execUpdate(ctx, tx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill coordinator ids on %s: %w", table, err)
	}
	return n, nil
}

// backfillCourseCoordinator assigns each course the coordinator of its most
// recently updated in-scope ticket, ties broken by the greatest key
func backfillCourseCoordinator(ctx context.Context, tx *sqlx.Tx, scope Scope) (int64, error) {
	filter, scopeArgs := scopeFilter("d.data_atualizacao", scope)
	candidates := `FROM db_dpc_jira d
		WHERE d.curso = cursos.nome_curso AND d.entidade = cursos.entidade
		AND d.coordenador_id IS NOT NULL` + filter

	query := `UPDATE cursos SET coordenador_id = (
		SELECT d.coordenador_id ` + candidates + `
		ORDER BY d.data_atualizacao IS NULL, d.data_atualizacao DESC, d.chave DESC
		LIMIT 1)
	WHERE EXISTS (SELECT 1 ` + candidates + `)`

	args := append(append([]interface{}{}, scopeArgs...), scopeArgs...)
	n, err := execUpdate(ctx, tx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill course coordinators: %w", err)
	}
	return n, nil
}

// fillParentCourse copies the parent ticket's course onto sub-tasks that
// carry none
func fillParentCourse(ctx context.Context, tx *sqlx.Tx, scope Scope) (int64, error) {
	const parent = "f.chave = db_dpc_jira_disciplinas.chave_pai AND f.curso IS NOT NULL"
	filter, args := scopeFilter("db_dpc_jira_disciplinas.data_atualizacao", scope)

	query := `UPDATE db_dpc_jira_disciplinas SET curso = (SELECT f.curso FROM db_dpc_jira f WHERE ` + parent + `)
		WHERE db_dpc_jira_disciplinas.curso IS NULL
		AND EXISTS (SELECT 1 FROM db_dpc_jira f WHERE ` + parent + `)` + filter

	n, err := execUpdate(ctx, tx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to fill parent courses: %w", err)
	}
	return n, nil
}
