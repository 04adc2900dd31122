package hrana

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCond(step int32) *Condition    { return &Condition{Type: "ok", Step: step} }
func notCond(c *Condition) *Condition { return &Condition{Type: "not", Cond: c} }

func TestBatchConditionalSkipOnFailure(t *testing.T) {
	conn := testConn(t)
	store := NewSQLStore()
	ctx := context.Background()

	require.Nil(t, ExecuteSequence(ctx, conn, "CREATE TABLE t (v INTEGER)"))

	// Step 0 fails; step 1 is gated on ok(0) and must be skipped entirely.
	res := RunBatch(ctx, conn, &Batch{Steps: []BatchStep{
		{Stmt: Stmt{SQL: strPtr("INSERT INTO nonexistent VALUES (1)")}},
		{Condition: okCond(0), Stmt: Stmt{SQL: strPtr("INSERT INTO t VALUES (1)")}},
	}}, store)

	require.Len(t, res.StepResults, 2)
	require.Len(t, res.StepErrors, 2)
	assert.Nil(t, res.StepResults[0])
	assert.NotNil(t, res.StepErrors[0])
	assert.Nil(t, res.StepResults[1], "skipped step must have no result")
	assert.Nil(t, res.StepErrors[1], "skipped step must have no error")

	// The skipped step must not have touched the database.
	count, execErr := ExecuteStmt(ctx, conn, &Stmt{SQL: strPtr("SELECT count(*) AS n FROM t")}, store)
	require.Nil(t, execErr)
	assert.Equal(t, Value{Type: "integer", Value: "0"}, count.Rows[0][0])
}

func TestBatchConditionalRunOnSuccess(t *testing.T) {
	conn := testConn(t)
	store := NewSQLStore()
	ctx := context.Background()

	res := RunBatch(ctx, conn, &Batch{Steps: []BatchStep{
		{Stmt: Stmt{SQL: strPtr("CREATE TABLE c (v INTEGER)")}},
		{Condition: okCond(0), Stmt: Stmt{SQL: strPtr("INSERT INTO c VALUES (1)")}},
	}}, store)

	assert.NotNil(t, res.StepResults[0])
	require.NotNil(t, res.StepResults[1])
	assert.Equal(t, int64(1), res.StepResults[1].AffectedRowCount)
}

func TestBatchOkAgainstSkippedStepIsFalse(t *testing.T) {
	conn := testConn(t)
	store := NewSQLStore()
	ctx := context.Background()

	// Step 0 fails, step 1 is skipped, step 2 references the skipped step.
	res := RunBatch(ctx, conn, &Batch{Steps: []BatchStep{
		{Stmt: Stmt{SQL: strPtr("BOGUS")}},
		{Condition: okCond(0), Stmt: Stmt{SQL: strPtr("SELECT 1")}},
		{Condition: okCond(1), Stmt: Stmt{SQL: strPtr("SELECT 2")}},
	}}, store)

	assert.Nil(t, res.StepResults[1])
	assert.Nil(t, res.StepResults[2], "ok() against a skipped step must be false")
	assert.Nil(t, res.StepErrors[2])
}

func TestBatchStepsRunInOrder(t *testing.T) {
	conn := testConn(t)
	store := NewSQLStore()
	ctx := context.Background()

	res := RunBatch(ctx, conn, &Batch{Steps: []BatchStep{
		{Stmt: Stmt{SQL: strPtr("CREATE TABLE ord (v INTEGER)")}},
		{Stmt: Stmt{SQL: strPtr("INSERT INTO ord VALUES (1)")}},
		{Stmt: Stmt{SQL: strPtr("SELECT v FROM ord")}},
	}}, store)

	for i := range res.StepResults {
		require.NotNil(t, res.StepResults[i], "step %d", i)
	}
	assert.Equal(t, Value{Type: "integer", Value: "1"}, res.StepResults[2].Rows[0][0])
}

func TestEvalConditionComposition(t *testing.T) {
	// Synthetic outcomes: step 0 succeeded, step 1 failed.
	out := &BatchResult{
		StepResults: []*StmtResult{emptyResult(), nil, nil},
		StepErrors:  []*Error{nil, {Message: "boom", Code: "SQLITE_ERROR"}, nil},
	}

	and := &Condition{Type: "and", Conds: []*Condition{okCond(0), notCond(okCond(1))}}
	assert.True(t, evalCondition(and, 2, out), "ok(0) && !ok(1) with 0 ok and 1 failed")

	or := &Condition{Type: "or", Conds: []*Condition{okCond(1), okCond(0)}}
	assert.True(t, evalCondition(or, 2, out))

	assert.False(t, evalCondition(okCond(1), 2, out))
	assert.False(t, evalCondition(okCond(2), 2, out), "ok of the current step is false")
	assert.True(t, evalCondition(nil, 2, out), "absent condition always runs")

	// and([]) is vacuously true, or([]) vacuously false.
	assert.True(t, evalCondition(&Condition{Type: "and"}, 2, out))
	assert.False(t, evalCondition(&Condition{Type: "or"}, 2, out))

	// Unknown condition types evaluate false.
	assert.False(t, evalCondition(&Condition{Type: "mystery"}, 2, out))

	// error(k) mirrors ok(k) for failed steps.
	assert.True(t, evalCondition(&Condition{Type: "error", Step: 1}, 2, out))
	assert.False(t, evalCondition(&Condition{Type: "error", Step: 0}, 2, out))
}

func TestBatchEmptyIsEmptyLists(t *testing.T) {
	conn := testConn(t)
	res := RunBatch(context.Background(), conn, &Batch{}, NewSQLStore())
	assert.Empty(t, res.StepResults)
	assert.Empty(t, res.StepErrors)
}
