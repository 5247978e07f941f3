package inmemdb

import (
	"context"

	"github.com/trezcool/mentorbro/core/sysconfig"
)

type configRepository struct {
	db *configTable
}

var _ sysconfig.Repository = (*configRepository)(nil)

func NewConfigRepository(db *DB) sysconfig.Repository {
	return &configRepository{db: db.config}
}

func (repo *configRepository) active() *sysconfig.SystemConfig {
	for _, c := range repo.db.table {
		if c.IsActive {
			return c
		}
	}
	return nil
}

func (repo *configRepository) GetActiveConfig(_ context.Context) (sysconfig.SystemConfig, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c := repo.active(); c != nil {
		return *c, nil
	}
	return sysconfig.SystemConfig{}, sysconfig.ErrNotFound
}

func (repo *configRepository) CreateConfig(_ context.Context, c sysconfig.SystemConfig) (sysconfig.SystemConfig, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if c.IsActive && repo.active() != nil {
		return sysconfig.SystemConfig{}, sysconfig.ErrAlreadyExists
	}
	c.ID = newID()
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *configRepository) UpdateConfig(_ context.Context, c sysconfig.SystemConfig) (sysconfig.SystemConfig, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[c.ID]
	if !ok {
		return sysconfig.SystemConfig{}, sysconfig.ErrNotFound
	}
	c.CreatedAt = orig.CreatedAt
	repo.db.table[c.ID] = &c
	return c, nil
}
