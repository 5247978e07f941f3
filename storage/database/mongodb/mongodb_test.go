package mongorepos_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/storage/database/dbtest"
	"github.com/trezcool/mentorbro/storage/database/mongodb"
)

// TEST_MONGO_URI points to a disposable deployment, e.g. mongodb://localhost:27017
func TestRepositories(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	dbtest.Run(t, func(t *testing.T) dbtest.Repos {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		conf := core.NewTestConfig()
		conf.Database.Engine = core.EngineMongo
		conf.Database.URI = uri
		conf.Database.Name = fmt.Sprintf("mentorbro_test_%d", time.Now().UnixNano())

		db, err := mongorepos.Open(ctx, conf)
		require.NoError(t, err)
		require.NoError(t, mongorepos.EnsureIndexes(ctx, db))
		t.Cleanup(func() {
			_ = db.Drop(context.Background())
			_ = mongorepos.Close(context.Background(), db)
		})

		return dbtest.Repos{
			Reviews:   mongorepos.NewReviewRepository(db),
			Tasks:     mongorepos.NewTaskRepository(db),
			Directory: mongorepos.NewDirectoryRepository(db),
			Config:    mongorepos.NewConfigRepository(db),
		}
	})
}
