// Package source reads raw series tables from csv files or postgres queries into dataframes
// ready for normalization.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aouyang1/go-costcast/frame"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNoRows            = errors.New("query returned no rows")
	ErrUnsupportedColumn = errors.New("unsupported column type")
)

// Querier runs a query returning rows. It is satisfied by a pgx connection or pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ReadFile reads a csv file with a header
func ReadFile(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("unable to open input, %w", err)
	}
	defer f.Close()
	return frame.ReadCSV(f)
}

// Connect opens a connection pool to postgres
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create postgres pool, %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach postgres, %w", err)
	}
	return pool, nil
}

// Query runs the query and returns every row as string cells under the selected column names
func Query(ctx context.Context, q Querier, query string, args ...any) (dataframe.DataFrame, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("unable to query series, %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, 0, len(fields))
	for _, fd := range fields {
		header = append(header, fd.Name)
	}

	records := [][]string{header}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("unable to scan row %d, %w", len(records), err)
		}
		record := make([]string, 0, len(values))
		for i, v := range values {
			cell, err := formatCell(v)
			if err != nil {
				return dataframe.DataFrame{}, fmt.Errorf("column %q, %w", header[i], err)
			}
			record = append(record, cell)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("unable to read rows, %w", err)
	}
	if len(records) == 1 {
		return dataframe.DataFrame{}, ErrNoRows
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	return df, df.Err
}

// formatCell renders a driver value so frame conversion can parse it back. NULLs become empty
// cells which convert to NaN.
func formatCell(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), nil
	case pgtype.Date:
		if !val.Valid {
			return "", nil
		}
		return val.Time.Format(time.DateOnly), nil
	case pgtype.Timestamptz:
		if !val.Valid {
			return "", nil
		}
		return val.Time.UTC().Format(time.RFC3339Nano), nil
	case pgtype.Numeric:
		if !val.Valid || val.NaN {
			return "", nil
		}
		f, err := val.Float64Value()
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f.Float64, 'f', -1, 64), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int:
		return strconv.Itoa(val), nil
	}
	return "", fmt.Errorf("%T, %w", v, ErrUnsupportedColumn)
}
