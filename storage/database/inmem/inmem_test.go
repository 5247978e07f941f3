package inmemdb_test

import (
	"testing"

	"github.com/trezcool/mentorbro/storage/database/dbtest"
	"github.com/trezcool/mentorbro/storage/database/inmem"
)

func TestRepositories(t *testing.T) {
	dbtest.Run(t, func(t *testing.T) dbtest.Repos {
		db := inmemdb.Open()
		return dbtest.Repos{
			Reviews:   inmemdb.NewReviewRepository(db),
			Tasks:     inmemdb.NewTaskRepository(db),
			Directory: inmemdb.NewDirectoryRepository(db),
			Config:    inmemdb.NewConfigRepository(db),
		}
	})
}
