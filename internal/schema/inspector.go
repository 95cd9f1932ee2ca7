// Package schema fetches column metadata for allow-listed tables.
// Two strategies exist: a catalog query against information_schema (or
// the sqlite pragma equivalent) and row-sample inference for backends
// without a catalog.
package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"

	"github.com/hugo-lorenzo-mato/askdb/internal/config"
	"github.com/hugo-lorenzo-mato/askdb/internal/core"
	"github.com/hugo-lorenzo-mato/askdb/internal/logging"
)

// CatalogInspector resolves table schemas from the database catalog.
// Concurrent inspections of the same table set share one query via
// singleflight.
type CatalogInspector struct {
	db      func() *sqlx.DB
	cfg     *config.Config
	logger  *logging.Logger
	flight  singleflight.Group
	dialect string
}

// NewCatalogInspector creates an inspector over a live pool accessor.
// The accessor is resolved per query rather than captured once, because
// the executor may replace its pool after a connection failure.
func NewCatalogInspector(db func() *sqlx.DB, cfg *config.Config, logger *logging.Logger) *CatalogInspector {
	return &CatalogInspector{
		db:      db,
		cfg:     cfg,
		logger:  logger,
		dialect: cfg.Dialect(),
	}
}

// Inspect returns column metadata for the given tables, defaulting to
// the configured allow-list. A table with no catalog entry is skipped;
// the call fails only when no table at all resolves.
func (c *CatalogInspector) Inspect(ctx context.Context, tables ...string) (core.TableSchema, error) {
	if len(tables) == 0 {
		tables = c.cfg.AllowedTables()
	}
	if len(tables) == 0 {
		return nil, core.ErrConfig("Missing allowed tables. Set query.allowed_tables or query.target_table.")
	}

	key := flightKey(tables)
	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		return c.inspect(ctx, tables)
	})
	if err != nil {
		return nil, err
	}
	return v.(core.TableSchema), nil
}

func (c *CatalogInspector) inspect(ctx context.Context, tables []string) (core.TableSchema, error) {
	schemas := make(core.TableSchema, len(tables))
	var missing []string

	for _, table := range tables {
		columns, err := c.tableColumns(ctx, table)
		if err != nil {
			return nil, core.ErrExecution(core.CodeSchemaFailed, "schema inspection failed").WithCause(err)
		}
		if len(columns) == 0 {
			missing = append(missing, table)
			continue
		}
		schemas[table] = columns
	}

	if len(missing) > 0 {
		c.logger.Warn("tables missing from catalog", "tables", strings.Join(missing, ","))
	}
	if len(schemas) == 0 {
		return nil, core.ErrValidation(core.CodeSchemaFailed, "No columns found for any allowed tables.")
	}
	return schemas, nil
}

func (c *CatalogInspector) tableColumns(ctx context.Context, table string) ([]core.Column, error) {
	query, args := c.columnQuery(table)

	db := c.db()
	rows, err := db.QueryContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// columnQuery builds the per-dialect catalog query, ordered by ordinal
// position so downstream prompts see columns in table order.
func (c *CatalogInspector) columnQuery(table string) (string, []any) {
	switch c.dialect {
	case config.DialectSQLite:
		return `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`, []any{table}
	case config.DialectMySQL:
		return `SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS
			WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`,
			[]any{c.cfg.Database.Database, table}
	default:
		return `SELECT column_name, data_type FROM information_schema.columns
			WHERE table_schema = ? AND table_name = ? ORDER BY ordinal_position`,
			[]any{c.schemaName(), table}
	}
}

func (c *CatalogInspector) schemaName() string {
	if s := strings.TrimSpace(c.cfg.Database.Schema); s != "" {
		return s
	}
	return "public"
}

func flightKey(tables []string) string {
	sorted := make([]string, len(tables))
	copy(sorted, tables)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

// RowSampler fetches a single row from a table, used by backends that
// expose no catalog.
type RowSampler interface {
	SampleRow(ctx context.Context, table string) (map[string]any, error)
}

// SampleInspector infers column types from one observed row per table.
// A table with no rows cannot be inferred and fails that table.
type SampleInspector struct {
	sampler RowSampler
	cfg     *config.Config
}

// NewSampleInspector creates a row-sample inspector.
func NewSampleInspector(sampler RowSampler, cfg *config.Config) *SampleInspector {
	return &SampleInspector{sampler: sampler, cfg: cfg}
}

// Inspect implements core.SchemaInspector via row sampling.
func (s *SampleInspector) Inspect(ctx context.Context, tables ...string) (core.TableSchema, error) {
	if len(tables) == 0 {
		tables = s.cfg.AllowedTables()
	}
	if len(tables) == 0 {
		return nil, core.ErrConfig("Missing allowed tables. Set query.allowed_tables or query.target_table.")
	}

	schemas := make(core.TableSchema, len(tables))
	for _, table := range tables {
		row, err := s.sampler.SampleRow(ctx, table)
		if err != nil {
			return nil, core.ErrExecution(core.CodeSchemaFailed, "schema inspection failed").WithCause(err)
		}
		if len(row) == 0 {
			return nil, core.ErrValidation(core.CodeSchemaFailed,
				fmt.Sprintf("No rows found for table '%s'; the schema cannot be inferred.", table))
		}
		schemas[table] = inferColumns(row)
	}
	return schemas, nil
}

// inferColumns derives column names and types from one row's values.
// Keys are sorted for a stable order; a null value observes as
// "unknown".
func inferColumns(row map[string]any) []core.Column {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]core.Column, 0, len(names))
	for _, name := range names {
		columns = append(columns, core.Column{Name: name, Type: inferType(row[name])})
	}
	return columns
}

func inferType(v any) string {
	switch v.(type) {
	case nil:
		return "unknown"
	case bool:
		return "bool"
	case float64, float32:
		return "number"
	case int, int32, int64:
		return "integer"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
