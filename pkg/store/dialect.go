// pkg/store/dialect.go
package store

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/danexplore/JiraSQL/pkg/model"
)

// Dialect selects the SQL flavor of the store
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// DialectFor maps a database/sql driver name to its dialect
func DialectFor(driverName string) (Dialect, error) {
	switch driverName {
	case "pgx", "postgres":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return 0, fmt.Errorf("unsupported store driver %q", driverName)
	}
}

func (d Dialect) String() string {
	if d == DialectSQLite {
		return "sqlite"
	}
	return "postgres"
}

// columnType returns the column type in this dialect
func (d Dialect) columnType(col model.Column) string {
	if d == DialectSQLite {
		return col.SQLiteType
	}
	return col.PgType
}

// existingColumnsQuery lists the column names of the table bound to the
// single parameter
func (d Dialect) existingColumnsQuery() string {
	if d == DialectSQLite {
		return "SELECT name FROM pragma_table_info(?)"
	}
	return `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = ?`
}

// createTableSQL builds the CREATE TABLE IF NOT EXISTS statement of a table
func (d Dialect) createTableSQL(table model.TableMetadata) string {
	var defs []string
	inlinePK := false
	for _, col := range table.Columns {
		typ := d.columnType(col)
		if strings.Contains(typ, "PRIMARY KEY") {
			inlinePK = true
		}
		def := quoteIdent(col.Name) + " " + typ
		if !col.Nullable && !strings.Contains(typ, "PRIMARY KEY") {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}

	if len(table.PrimaryKeys) > 0 && !inlinePK {
		defs = append(defs, "PRIMARY KEY ("+quoteIdents(table.PrimaryKeys)+")")
	}
	for _, unique := range table.Uniques {
		defs = append(defs, "UNIQUE ("+quoteIdents(unique)+")")
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		quoteIdent(table.Table), strings.Join(defs, ",\n\t"))
}

// addColumnSQL builds the statement that adds a missing column. Added
// columns are always nullable so existing rows stay valid.
func (d Dialect) addColumnSQL(table string, col model.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		quoteIdent(table), quoteIdent(col.Name), d.columnType(col))
}

func quoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quoteIdent(name)
	}
	return strings.Join(quoted, ", ")
}
