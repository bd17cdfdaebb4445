package recurring

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"moneytracker/internal/core"
)

func TestApply_ConcurrentDifferentOverrides(t *testing.T) {
	store := newMemStore(variable(1, 1), fixed(2, 100, 2))
	engine := NewEngine(store)

	var applied atomic.Int64
	var g errgroup.Group
	for i := 1; i <= 16; i++ {
		amount := int64(i * 1000)
		g.Go(func() error {
			res, err := engine.Apply(context.Background(), "2024-05", core.Overrides{1: amount})
			applied.Add(int64(res.Applied))
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(2), applied.Load())
	assert.Len(t, store.transactions(), 2)
}
