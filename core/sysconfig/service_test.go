package sysconfig_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/sysconfig"
	"github.com/trezcool/mentorbro/storage/database/inmem"
)

// countingRepo counts the documents actually created.
type countingRepo struct {
	sysconfig.Repository
	created int32
	// staleReads makes the first n GetActiveConfig calls miss, like a read that raced a concurrent insert.
	staleReads int32
}

func (r *countingRepo) GetActiveConfig(ctx context.Context) (sysconfig.SystemConfig, error) {
	if atomic.AddInt32(&r.staleReads, -1) >= 0 {
		return sysconfig.SystemConfig{}, sysconfig.ErrNotFound
	}
	return r.Repository.GetActiveConfig(ctx)
}

func (r *countingRepo) CreateConfig(ctx context.Context, c sysconfig.SystemConfig) (sysconfig.SystemConfig, error) {
	created, err := r.Repository.CreateConfig(ctx, c)
	if err == nil {
		atomic.AddInt32(&r.created, 1)
	}
	return created, err
}

func newService(repo sysconfig.Repository) *sysconfig.Service {
	return sysconfig.NewService(repo, core.NewValidator(core.NewTranslator()))
}

func TestService_EnsureDefault(t *testing.T) {
	repo := &countingRepo{Repository: inmemdb.NewConfigRepository(inmemdb.Open())}
	svc := newService(repo)

	first, err := svc.EnsureDefault(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.True(t, first.IsActive)

	again, err := svc.EnsureDefault(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.EqualValues(t, 1, repo.created)
}

func TestService_EnsureDefault_lostRace(t *testing.T) {
	repo := &countingRepo{Repository: inmemdb.NewConfigRepository(inmemdb.Open())}
	winner, err := newService(repo).EnsureDefault(context.Background())
	require.NoError(t, err)

	// the next caller misses the winner's document on its first read and collides on insert
	atomic.StoreInt32(&repo.staleReads, 1)
	got, err := newService(repo).EnsureDefault(context.Background())
	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
	assert.EqualValues(t, 1, repo.created)
}

func TestService_EnsureDefault_concurrent(t *testing.T) {
	const callers = 16
	repo := &countingRepo{Repository: inmemdb.NewConfigRepository(inmemdb.Open())}
	svc := newService(repo)

	ids := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conf, err := svc.EnsureDefault(context.Background())
			ids[i], errs[i] = conf.ID, err
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.NotEmpty(t, ids[0])
	assert.EqualValues(t, 1, repo.created)
}
