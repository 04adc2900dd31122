package hrana

import (
	"context"
	"database/sql"
)

// Process interprets one pipeline request and routes it to the executor,
// batch evaluator, or session-management handlers. It always returns a
// StreamResult; request-level failures become {type:"error"} entries so
// sibling requests in the same pipeline still run.
func Process(ctx context.Context, conn *sql.Conn, req StreamRequest, store *SQLStore) StreamResult {
	switch req.Type {
	case "execute":
		if req.Stmt == nil {
			return errResult(ProtoError("execute request missing stmt"))
		}
		res, execErr := ExecuteStmt(ctx, conn, req.Stmt, store)
		if execErr != nil {
			return errResult(execErr)
		}
		return okResult(Response{Type: "execute", Result: res})

	case "batch":
		batch := req.Batch
		if batch == nil {
			batch = &Batch{}
		}
		return okResult(Response{Type: "batch", Result: RunBatch(ctx, conn, batch, store)})

	case "sequence":
		sqlText := store.Resolve(req.SQL, req.SQLID)
		if execErr := ExecuteSequence(ctx, conn, sqlText); execErr != nil {
			return errResult(execErr)
		}
		return okResult(Response{Type: "sequence"})

	case "store_sql":
		if req.SQLID == nil {
			return errResult(ProtoError("store_sql request missing sql_id"))
		}
		var sqlText string
		if req.SQL != nil {
			sqlText = *req.SQL
		}
		store.Store(*req.SQLID, sqlText)
		return okResult(Response{Type: "store_sql"})

	case "close_sql":
		if req.SQLID == nil {
			return errResult(ProtoError("close_sql request missing sql_id"))
		}
		store.Forget(*req.SQLID)
		return okResult(Response{Type: "close_sql"})

	case "close":
		// Stream teardown happens at the pipeline level; the transport
		// withholds the response baton when it sees this request type.
		return okResult(Response{Type: "close"})

	default:
		return errResult(ProtoError("unknown request type: %q", req.Type))
	}
}
