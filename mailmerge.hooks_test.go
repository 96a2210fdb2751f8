package mailmerge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookRegistry(t *testing.T) {
	t.Run("register and count", func(t *testing.T) {
		r := NewHookRegistry()
		noop := func(ctx context.Context, point HookPoint, data *HookData) error { return nil }

		r.Register(HookBeforeRow, noop)
		r.RegisterMultiple(noop, HookBeforeRow, HookAfterRow)

		assert.Equal(t, 2, r.Count(HookBeforeRow))
		assert.True(t, r.HasHooks(HookAfterRow))
		assert.False(t, r.HasHooks(HookBeforeSave))

		r.Clear(HookBeforeRow)
		assert.Equal(t, 0, r.Count(HookBeforeRow))
	})

	t.Run("before hooks stop at first error", func(t *testing.T) {
		r := NewHookRegistry()
		calls := 0
		r.Register(HookBeforeSave, func(ctx context.Context, point HookPoint, data *HookData) error {
			calls++
			return errors.New("no")
		})
		r.Register(HookBeforeSave, func(ctx context.Context, point HookPoint, data *HookData) error {
			calls++
			return nil
		})

		err := r.Run(context.Background(), HookBeforeSave, NewHookData("b", "t"))
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Contains(t, err.Error(), string(HookBeforeSave))
	})

	t.Run("after hooks all run", func(t *testing.T) {
		r := NewHookRegistry()
		calls := 0
		for i := 0; i < 3; i++ {
			r.Register(HookAfterSave, func(ctx context.Context, point HookPoint, data *HookData) error {
				calls++
				return errors.New("logged only")
			})
		}

		err := r.Run(context.Background(), HookAfterSave, NewHookData("b", "t"))
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("nil registry", func(t *testing.T) {
		var r *HookRegistry
		assert.NoError(t, r.Run(context.Background(), HookBeforeBatch, nil))
		assert.Equal(t, 0, r.Count(HookBeforeBatch))
	})
}

func TestHookData(t *testing.T) {
	d := NewHookData("batch_1", "welcome")
	d.Total = 7
	d.SetMetadata("k", "v")

	r := d.ForRow(3, row("a", "1"))
	assert.Equal(t, "batch_1", r.BatchID)
	assert.Equal(t, "welcome", r.TemplateName)
	assert.Equal(t, 7, r.Total)
	assert.Equal(t, 3, r.Index)
	_, ok := r.GetMetadata("k")
	assert.False(t, ok, "row data starts with fresh metadata")

	var empty HookData
	_, ok = empty.GetMetadata("k")
	assert.False(t, ok)
	empty.SetMetadata("k", 1)
	v, ok := empty.GetMetadata("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTimingHook(t *testing.T) {
	hook, elapsed := TimingHook()
	data := NewHookData("b", "t")

	assert.Zero(t, elapsed(data))
	require.NoError(t, hook(context.Background(), HookBeforeRow, data))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, hook(context.Background(), HookAfterRow, data))

	assert.GreaterOrEqual(t, elapsed(data), 2*time.Millisecond)
}

func TestLoggingHook(t *testing.T) {
	var got []HookPoint
	hook := LoggingHook(func(point HookPoint, data *HookData) { got = append(got, point) })

	require.NoError(t, hook(context.Background(), HookAfterBatch, NewHookData("b", "t")))
	assert.Equal(t, []HookPoint{HookAfterBatch}, got)
}

func TestHookError(t *testing.T) {
	cause := errors.New("boom")
	err := NewHookError(HookBeforeRow, cause)

	assert.Equal(t, "hook execution failed (hook: before_row): boom", err.Error())
	assert.True(t, errors.Is(err, cause))
}
