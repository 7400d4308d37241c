package history

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/evaluator"
	chronotest "github.com/teranos/chrono/internal/testing"
)

func setupStore(t *testing.T, limit int) *Store {
	t.Helper()
	return NewStore(chronotest.CreateTestDB(t), limit, zap.NewNop().Sugar())
}

func successfulEvaluation() *Evaluation {
	image := base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'})
	return NewEvaluation("timeline t1 {}\nmain { export t1 }", &evaluator.Result{
		Components: []evaluator.Component{
			{ID: "t1", Type: "timeline", Title: "Moon", JSON: `{"id":"t1"}`, Image: image},
			{ID: "e1", Type: "event", JSON: `{"id":"e1"}`},
		},
		Duration: 1500 * time.Millisecond,
	}, nil)
}

func TestSaveAndGet(t *testing.T) {
	store := setupStore(t, 0)
	ctx := context.Background()

	e := successfulEvaluation()
	require.NoError(t, store.Save(ctx, e))

	got, err := store.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Code, got.Code)
	assert.True(t, got.Success)
	assert.EqualValues(t, 1500, got.DurationMS)
	assert.WithinDuration(t, e.CreatedAt, got.CreatedAt, time.Second)
	assert.Equal(t, e.Components, got.Components, "order and images survive")
	assert.Nil(t, got.Errors)
}

func TestSaveAndGet_Failure(t *testing.T) {
	store := setupStore(t, 0)
	ctx := context.Background()
	line := 3

	e := NewEvaluation("main { }", nil, &evaluator.EvaluationError{
		Category: evaluator.CategoryParser,
		Message:  "Parse error",
		Errors:   []evaluator.ErrorDetail{{Message: "expected export", Line: &line}},
	})
	require.NoError(t, store.Save(ctx, e))

	got, err := store.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, got.Success)
	assert.Equal(t, evaluator.CategoryParser, got.ErrorType)
	assert.Equal(t, "Parse error", got.ErrorMessage)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, 3, *got.Errors[0].Line)
	assert.Empty(t, got.Components)
}

func TestGet_NotFound(t *testing.T) {
	store := setupStore(t, 0)
	_, err := store.Get(context.Background(), "missing")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestComponent(t *testing.T) {
	store := setupStore(t, 0)
	ctx := context.Background()
	e := successfulEvaluation()
	require.NoError(t, store.Save(ctx, e))

	c, err := store.Component(ctx, e.ID, "t1")
	require.NoError(t, err)
	img, err := c.ImageBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, img)

	c, err = store.Component(ctx, e.ID, "e1")
	require.NoError(t, err)
	assert.False(t, c.HasImage())

	_, err = store.Component(ctx, e.ID, "nope")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestList(t *testing.T) {
	store := setupStore(t, 0)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		e := successfulEvaluation()
		e.Code = fmt.Sprintf("\n\n// program %d\nmain { export t1 }", i)
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Save(ctx, e))
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "// program 2", all[0].Preview, "newest first")
	assert.Equal(t, 2, all[0].ComponentCount)

	two, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestPrune(t *testing.T) {
	store := setupStore(t, 0)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 5; i++ {
		e := successfulEvaluation()
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Save(ctx, e))
		ids = append(ids, e.ID)
	}

	n, err := store.Prune(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	_, err = store.Get(ctx, ids[0])
	assert.True(t, errors.IsNotFoundError(err))
	_, err = store.Component(ctx, ids[0], "t1")
	assert.True(t, errors.IsNotFoundError(err), "components go with their evaluation")

	_, err = store.Get(ctx, ids[4])
	assert.NoError(t, err)

	n, err = store.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSave_EnforcesLimit(t *testing.T) {
	store := setupStore(t, 2)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Save(ctx, successfulEvaluation()))
	}
	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestClosedDatabase(t *testing.T) {
	conn := chronotest.CreateTestDB(t)
	store := NewStore(conn, 0, nil)
	require.NoError(t, conn.Close())

	err := store.Save(context.Background(), successfulEvaluation())
	assert.True(t, errors.IsServiceUnavailableError(err))

	_, err = store.List(context.Background(), 0)
	assert.True(t, errors.IsServiceUnavailableError(err))
}

func TestSave_RollsBackOnComponentFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	store := NewStore(conn, 0, zap.NewNop().Sugar())
	e := successfulEvaluation()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO evaluations").
		WithArgs(e.ID, e.Code, true, "", "", "[]", int64(1500), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO components").
		WillReturnError(fmt.Errorf("disk I/O error"))
	mock.ExpectRollback()

	err = store.Save(context.Background(), e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert component t1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "", preview("\n  \n"))
	assert.Equal(t, "main { }", preview("  main { }  \nx"))
	long := strings.Repeat("a", 80)
	p := preview(long)
	assert.Equal(t, 60, len([]rune(p)))
	assert.True(t, strings.HasSuffix(p, "…"))
}
