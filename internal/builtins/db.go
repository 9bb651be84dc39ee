package builtins

import (
	"database/sql"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/google/uuid"

	"grotsky/internal/errors"
	"grotsky/internal/value"
)

// driverNames maps the script-facing driver tag to the database/sql
// driver name its blank import registered. sqlite/mysql/postgres/mssql
// exercise four pack dependencies through one uniform Native contract.
var driverNames = map[string]string{
	"sqlite":   "sqlite",
	"mysql":    "mysql",
	"postgres": "postgres",
	"mssql":    "sqlserver",
}

// newDBModule builds SPEC_FULL.md's additive `db` module: open(driver,
// dsn) returns a Native handle (baggage = *sql.DB) with .query/.exec.
func newDBModule() value.Value {
	return nativeModule(map[string]value.Value{
		"open": nativeFn("open", func(args []value.Value) (value.Value, error) {
			driverTag, err := requireString(args, 0, "open")
			if err != nil {
				return value.Value{}, err
			}
			dsn, err := requireString(args, 1, "open")
			if err != nil {
				return value.Value{}, err
			}
			driverName, ok := driverNames[driverTag]
			if !ok {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedString, "open: unknown driver %q", driverTag)
			}
			conn, openErr := sql.Open(driverName, dsn)
			if openErr != nil {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedString, "open: %v", openErr)
			}
			return newDBHandle(conn), nil
		}),
	})
}

func newDBHandle(conn *sql.DB) value.Value {
	id := uuid.New().String()
	closed := false
	native := &value.NativeObj{
		Baggage: conn,
		OnRelease: func(baggage interface{}) {
			baggage.(*sql.DB).Close()
		},
	}
	native.Properties = map[string]value.Value{
		"id": value.String(id),
		"close": nativeFn("close", func(args []value.Value) (value.Value, error) {
			closed = true
			return value.Nil(), conn.Close()
		}),
		"query": nativeFn("query", func(args []value.Value) (value.Value, error) {
			if closed {
				return value.Value{}, errors.NewRuntimeError(errors.KindReadOnly, "query: handle %s is closed", id)
			}
			query, err := requireString(args, 0, "query")
			if err != nil {
				return value.Value{}, err
			}
			rows, queryErr := conn.Query(query, sqlArgs(args[1:])...)
			if queryErr != nil {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedString, "query: %v", queryErr)
			}
			defer rows.Close()
			return rowsToDicts(rows)
		}),
		"exec": nativeFn("exec", func(args []value.Value) (value.Value, error) {
			if closed {
				return value.Value{}, errors.NewRuntimeError(errors.KindReadOnly, "exec: handle %s is closed", id)
			}
			query, err := requireString(args, 0, "exec")
			if err != nil {
				return value.Value{}, err
			}
			result, execErr := conn.Exec(query, sqlArgs(args[1:])...)
			if execErr != nil {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedString, "exec: %v", execErr)
			}
			affected, _ := result.RowsAffected()
			return value.Number(float64(affected)), nil
		}),
	}
	return value.NewNative(native)
}

func sqlArgs(args []value.Value) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		switch a.Kind {
		case value.KindString:
			out[i] = value.AsString(a)
		case value.KindNumber:
			out[i] = value.AsNumber(a)
		case value.KindBool:
			out[i] = value.AsBool(a)
		case value.KindBytes:
			out[i] = value.AsBytes(a)
		default:
			out[i] = nil
		}
	}
	return out
}

func rowsToDicts(rows *sql.Rows) (value.Value, error) {
	cols, err := rows.Columns()
	if err != nil {
		return value.Value{}, errors.NewRuntimeError(errors.KindExpectedCollection, "query: %v", err)
	}

	var results []value.Value
	for rows.Next() {
		scanTargets := make([]interface{}, len(cols))
		scanValues := make([]interface{}, len(cols))
		for i := range scanValues {
			scanTargets[i] = &scanValues[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return value.Value{}, errors.NewRuntimeError(errors.KindExpectedCollection, "query: %v", err)
		}

		d := value.NewDict()
		dict := value.AsDict(d)
		for i, col := range cols {
			v := sqlValueToValue(scanValues[i])
			hashKey, _ := value.HashKey(value.String(col))
			dict.SetHashed(hashKey, value.String(col), v)
		}
		results = append(results, d)
	}
	if err := rows.Err(); err != nil {
		return value.Value{}, errors.NewRuntimeError(errors.KindExpectedCollection, "query: %v", err)
	}
	return value.NewList(results), nil
}

func sqlValueToValue(v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Nil()
	case int64:
		return value.Number(float64(t))
	case float64:
		return value.Number(t)
	case bool:
		return value.Bool(t)
	case []byte:
		return value.String(string(t))
	case string:
		return value.String(t)
	default:
		return value.Nil()
	}
}
