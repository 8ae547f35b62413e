package sqlite

import (
	"database/sql/driver"
	"strings"

	moderncsqlite "modernc.org/sqlite"
)

// foldFunc is the SQL name of the Unicode lowercase function. SQLite's own
// LOWER and LIKE only fold ASCII.
const foldFunc = "aim_fold"

func init() {
	moderncsqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, foldValue)
}

// foldValue lowercases text the same way Search lowercases keywords.
// NULL stays NULL so it never matches a pattern.
func foldValue(_ *moderncsqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}
