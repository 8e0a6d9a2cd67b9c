// pkg/model/metadata.go
package model

import "strings"

// TableMetadata describes a table managed by the store
type TableMetadata struct {
	Table       string   // Table name
	Columns     []Column // Column definitions, in creation order
	PrimaryKeys []string // Primary key column names
	Uniques     [][]string
}

// Column describes one column and its type per dialect
type Column struct {
	Name       string // Column name
	PgType     string // PostgreSQL type
	SQLiteType string // SQLite type affinity
	Nullable   bool   // Whether column allows NULL values
}

// GetColumnByName returns a column by name (case-insensitive)
// Returns nil if column not found
func (tm *TableMetadata) GetColumnByName(name string) *Column {
	for i, col := range tm.Columns {
		if strings.EqualFold(col.Name, name) {
			return &tm.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns the column names in creation order
func (tm *TableMetadata) ColumnNames() []string {
	names := make([]string, len(tm.Columns))
	for i, col := range tm.Columns {
		names[i] = col.Name
	}
	return names
}

// IsPrimaryKey reports whether the named column is part of the primary key
func (tm *TableMetadata) IsPrimaryKey(name string) bool {
	for _, pk := range tm.PrimaryKeys {
		if strings.EqualFold(pk, name) {
			return true
		}
	}
	return false
}
