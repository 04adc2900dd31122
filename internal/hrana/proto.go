// Package hrana implements the Hrana v2 protocol core: the tagged value
// codec, per-stream SQL text cache, statement executor, conditional batch
// evaluator, pipeline dispatcher and baton session registry.
//
// The HTTP transport lives in internal/server; this package is independent
// of it so the protocol logic can be tested against a bare *sql.Conn.
package hrana

import "fmt"

// Error codes reported alongside protocol-level failures. Execution errors
// carry the engine's own code (e.g. SQLITE_CONSTRAINT) instead.
const (
	CodeProtoError    = "HRANA_PROTO_ERROR"
	CodeInternalError = "HRANA_INTERNAL_ERROR"
)

// Error is a protocol or execution failure carried as a value. Batch
// semantics require inspecting "did step k fail" without unwinding, so
// errors never propagate as panics or Go errors past the executor boundary.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *Error) Error() string { return e.Message }

// ProtoError builds a protocol-level Error.
func ProtoError(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Code: CodeProtoError}
}

// Stmt describes one statement: inline SQL or a reference to a cached
// sql_id, plus positional or named arguments. Exactly one of SQL and SQLID
// is meaningful; both absent resolves to empty SQL, which executes as an
// inert empty result rather than an error.
type Stmt struct {
	SQL       *string    `json:"sql,omitempty"`
	SQLID     *int32     `json:"sql_id,omitempty"`
	Args      []Value    `json:"args,omitempty"`
	NamedArgs []NamedArg `json:"named_args,omitempty"`
	WantRows  *bool      `json:"want_rows,omitempty"`
}

// NamedArg binds one named parameter. Names may carry a ':', '@' or '$'
// prefix on the wire; binding strips it.
type NamedArg struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Col describes one result column. Decltype is null for expressions with no
// declared type.
type Col struct {
	Name     string  `json:"name"`
	Decltype *string `json:"decltype"`
}

// StmtResult is a successful statement outcome. Row-producing statements
// report zero affected rows and a null rowid; effect-only statements report
// empty cols/rows.
type StmtResult struct {
	Cols             []Col     `json:"cols"`
	Rows             [][]Value `json:"rows"`
	AffectedRowCount int64     `json:"affected_row_count"`
	LastInsertRowid  *string   `json:"last_insert_rowid"`
}

// Condition is the batch step condition tree: ok/not/and/or over the
// outcomes of earlier steps.
type Condition struct {
	Type  string       `json:"type"`
	Step  int32        `json:"step,omitempty"`
	Cond  *Condition   `json:"cond,omitempty"`
	Conds []*Condition `json:"conds,omitempty"`
}

// BatchStep is one conditional statement in a batch. A nil condition means
// the step always runs.
type BatchStep struct {
	Condition *Condition `json:"condition,omitempty"`
	Stmt      Stmt       `json:"stmt"`
}

// Batch is an ordered list of conditional steps.
type Batch struct {
	Steps []BatchStep `json:"steps"`
}

// BatchResult carries two parallel lists, one entry per input step. A
// skipped step is nil in both.
type BatchResult struct {
	StepResults []*StmtResult `json:"step_results"`
	StepErrors  []*Error      `json:"step_errors"`
}

// StreamRequest is one request in a pipeline batch, discriminated by Type.
// The per-type payload fields overlap on the wire, so a single struct with
// optional fields models the union; Process validates shape per type.
type StreamRequest struct {
	Type  string  `json:"type"`
	Stmt  *Stmt   `json:"stmt,omitempty"`
	Batch *Batch  `json:"batch,omitempty"`
	SQL   *string `json:"sql,omitempty"`
	SQLID *int32  `json:"sql_id,omitempty"`
}

// Response is the per-type payload of a successful request.
type Response struct {
	Type   string `json:"type"`
	Result any    `json:"result,omitempty"`
}

// StreamResult is the outcome of one pipeline request: ok with a response,
// or error with a structured error value.
type StreamResult struct {
	Type     string    `json:"type"`
	Response *Response `json:"response,omitempty"`
	Error    *Error    `json:"error,omitempty"`
}

func okResult(resp Response) StreamResult {
	return StreamResult{Type: "ok", Response: &resp}
}

func errResult(err *Error) StreamResult {
	return StreamResult{Type: "error", Error: err}
}

// PipelineRequest is the body of POST /v2/pipeline.
type PipelineRequest struct {
	Baton    *string         `json:"baton"`
	Requests []StreamRequest `json:"requests"`
}

// PipelineResponse mirrors the request: results[i] corresponds to
// requests[i]. Baton is null when the stream was closed; BaseURL is always
// null for this single-instance server.
type PipelineResponse struct {
	Baton   *string        `json:"baton"`
	BaseURL *string        `json:"base_url"`
	Results []StreamResult `json:"results"`
}
