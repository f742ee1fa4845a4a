package reactor_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/plugstack/reactor"
)

func TestReactor_SubmitRunsTasks(t *testing.T) {
	r, err := reactor.New(2)
	require.NoError(t, err)
	defer r.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		require.NoError(t, r.Submit(func() {
			defer wg.Done()
			mu.Lock()
			count++
			mu.Unlock()
		}))
	}
	wg.Wait()
	assert.Equal(t, 20, count)
}

func TestReactor_ZeroSizeUsesDefault(t *testing.T) {
	r, err := reactor.New(0)
	require.NoError(t, err)
	defer r.Release()

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, r.Submit(wg.Done))
	wg.Wait()
}

func TestReactor_ReleaseRejectsNewWork(t *testing.T) {
	r, err := reactor.New(1)
	require.NoError(t, err)
	require.False(t, r.Released())

	r.Release()

	assert.True(t, r.Released())
	assert.Error(t, r.Submit(func() {}))
}
