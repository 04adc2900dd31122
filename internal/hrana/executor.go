package hrana

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	sqlite "modernc.org/sqlite"
)

// ExecuteStmt runs one resolved statement against conn and returns either a
// result or a structured execution error. Failures are values, never Go
// errors: a failed statement inside a batch must not abort the enclosing
// pipeline response.
func ExecuteStmt(ctx context.Context, conn *sql.Conn, stmt *Stmt, store *SQLStore) (*StmtResult, *Error) {
	sqlText := store.Resolve(stmt.SQL, stmt.SQLID)
	if isEmptySQL(sqlText) {
		return emptyResult(), nil
	}

	rows, err := conn.QueryContext(ctx, sqlText, bindArgs(stmt)...)
	if err != nil {
		return nil, execError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, execError(err)
	}

	if len(cols) == 0 {
		return executeForEffect(ctx, conn, rows)
	}

	outCols := make([]Col, len(cols))
	for i, name := range cols {
		outCols[i] = Col{Name: name}
	}
	if colTypes, err := rows.ColumnTypes(); err == nil {
		for i, ct := range colTypes {
			if dt := ct.DatabaseTypeName(); dt != "" {
				decl := dt
				outCols[i].Decltype = &decl
			}
		}
	}

	wantRows := stmt.WantRows == nil || *stmt.WantRows
	outRows := make([][]Value, 0)
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, execError(err)
		}
		if !wantRows {
			continue
		}
		row := make([]Value, len(cols))
		for i, cell := range raw {
			row[i] = EncodeValue(cell)
		}
		outRows = append(outRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, execError(err)
	}

	// SELECT-like statements never report mutation counts.
	return &StmtResult{Cols: outCols, Rows: outRows}, nil
}

// executeForEffect finishes a statement that produces no columns and reads
// its mutation count and last rowid. conn is pinned to a single underlying
// SQLite connection (MaxOpenConns is 1), so changes() and
// last_insert_rowid() observe the statement that just ran.
func executeForEffect(ctx context.Context, conn *sql.Conn, rows *sql.Rows) (*StmtResult, *Error) {
	// Drain to force execution on drivers that step lazily.
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return nil, execError(err)
	}
	if err := rows.Close(); err != nil {
		return nil, execError(err)
	}

	var changes, rowid int64
	if err := conn.QueryRowContext(ctx, "SELECT changes(), last_insert_rowid()").Scan(&changes, &rowid); err != nil {
		return nil, execError(err)
	}

	res := emptyResult()
	res.AffectedRowCount = changes
	if rowid != 0 {
		s := strconv.FormatInt(rowid, 10)
		res.LastInsertRowid = &s
	}
	return res, nil
}

// ExecuteSequence runs raw, possibly multi-statement SQL text for effect.
// The driver executes every statement in the string when no arguments are
// bound; no result rows are ever returned.
func ExecuteSequence(ctx context.Context, conn *sql.Conn, sqlText string) *Error {
	if isEmptySQL(sqlText) {
		return nil
	}
	if _, err := conn.ExecContext(ctx, sqlText); err != nil {
		return execError(err)
	}
	return nil
}

func emptyResult() *StmtResult {
	return &StmtResult{Cols: []Col{}, Rows: [][]Value{}}
}

// bindArgs converts wire arguments into driver arguments. Named arguments
// take precedence and bind by name with any ':', '@' or '$' prefix stripped.
func bindArgs(stmt *Stmt) []any {
	if len(stmt.NamedArgs) > 0 {
		out := make([]any, 0, len(stmt.NamedArgs))
		for _, a := range stmt.NamedArgs {
			name := strings.TrimLeft(a.Name, ":@$")
			out = append(out, sql.Named(name, DecodeValue(a.Value)))
		}
		return out
	}
	out := make([]any, 0, len(stmt.Args))
	for _, a := range stmt.Args {
		out = append(out, DecodeValue(a))
	}
	return out
}

// execError converts an engine failure into a structured error value,
// carrying the engine's error code name when exposed.
func execError(err error) *Error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return &Error{Message: err.Error(), Code: sqliteCodeName(se.Code())}
	}
	return &Error{Message: err.Error(), Code: "SQLITE_ERROR"}
}

// sqliteCodeName maps a primary SQLite result code to its canonical name.
var sqliteCodeNames = map[int]string{
	1:  "SQLITE_ERROR",
	2:  "SQLITE_INTERNAL",
	3:  "SQLITE_PERM",
	4:  "SQLITE_ABORT",
	5:  "SQLITE_BUSY",
	6:  "SQLITE_LOCKED",
	7:  "SQLITE_NOMEM",
	8:  "SQLITE_READONLY",
	9:  "SQLITE_INTERRUPT",
	10: "SQLITE_IOERR",
	11: "SQLITE_CORRUPT",
	13: "SQLITE_FULL",
	14: "SQLITE_CANTOPEN",
	18: "SQLITE_TOOBIG",
	19: "SQLITE_CONSTRAINT",
	20: "SQLITE_MISMATCH",
	21: "SQLITE_MISUSE",
	23: "SQLITE_AUTH",
	25: "SQLITE_RANGE",
}

func sqliteCodeName(code int) string {
	if name, ok := sqliteCodeNames[code&0xff]; ok {
		return name
	}
	return "SQLITE_ERROR"
}
