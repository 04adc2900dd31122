package hrana

import (
	"context"
	"database/sql"
)

// RunBatch executes an ordered list of conditional steps. Steps run strictly
// in order: step i's condition may only observe the outcomes of steps
// 0..i-1. A step whose condition is false is skipped and stays nil in both
// result lists, so an ok() check against it evaluates false.
func RunBatch(ctx context.Context, conn *sql.Conn, batch *Batch, store *SQLStore) *BatchResult {
	n := len(batch.Steps)
	out := &BatchResult{
		StepResults: make([]*StmtResult, n),
		StepErrors:  make([]*Error, n),
	}

	for i, step := range batch.Steps {
		if !evalCondition(step.Condition, i, out) {
			continue
		}
		res, execErr := ExecuteStmt(ctx, conn, &step.Stmt, store)
		if execErr != nil {
			out.StepErrors[i] = execErr
			continue
		}
		out.StepResults[i] = res
	}
	return out
}

// evalCondition evaluates a condition tree against the outcomes produced so
// far. A nil condition is always true. ok(step=k) is true iff step k already
// ran and produced a result; references to the current or later steps are
// false by construction. Unrecognized condition types evaluate false,
// mirroring the codec's permissive handling of malformed input.
func evalCondition(cond *Condition, step int, out *BatchResult) bool {
	if cond == nil {
		return true
	}
	switch cond.Type {
	case "ok":
		k := int(cond.Step)
		return k >= 0 && k < step && out.StepResults[k] != nil
	case "error":
		k := int(cond.Step)
		return k >= 0 && k < step && out.StepErrors[k] != nil
	case "not":
		return !evalCondition(cond.Cond, step, out)
	case "and":
		for _, c := range cond.Conds {
			if !evalCondition(c, step, out) {
				return false
			}
		}
		return true
	case "or":
		for _, c := range cond.Conds {
			if evalCondition(c, step, out) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
