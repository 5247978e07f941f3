// Package store opens the repositories of the configured database engine.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/directory"
	"github.com/trezcool/mentorbro/core/program"
	"github.com/trezcool/mentorbro/core/review"
	"github.com/trezcool/mentorbro/core/sysconfig"
	"github.com/trezcool/mentorbro/storage/database"
	"github.com/trezcool/mentorbro/storage/database/inmem"
	"github.com/trezcool/mentorbro/storage/database/mongodb"
	"github.com/trezcool/mentorbro/storage/database/sqlx"
)

type Store struct {
	Engine    string
	Reviews   review.Repository
	Tasks     program.Repository
	Directory directory.Repository
	Configs   sysconfig.Repository

	// SQL is the postgres connection, nil for other engines.
	SQL   *sql.DB
	close func(ctx context.Context) error
}

// Open connects to conf.Database.Engine and prepares it: postgres gets created and migrated, mongo gets its indexes.
func Open(ctx context.Context, conf *core.Config) (*Store, error) {
	switch conf.Database.Engine {
	case core.EngineMongo:
		return openMongo(ctx, conf)
	case core.EnginePostgres:
		return openPostgres(conf)
	case core.EngineMemory:
		db := inmemdb.Open()
		return &Store{
			Engine:    core.EngineMemory,
			Reviews:   inmemdb.NewReviewRepository(db),
			Tasks:     inmemdb.NewTaskRepository(db),
			Directory: inmemdb.NewDirectoryRepository(db),
			Configs:   inmemdb.NewConfigRepository(db),
			close:     func(context.Context) error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}

func openMongo(ctx context.Context, conf *core.Config) (*Store, error) {
	db, err := mongorepos.Open(ctx, conf)
	if err != nil {
		return nil, err
	}
	if err = mongorepos.EnsureIndexes(ctx, db); err != nil {
		_ = mongorepos.Close(ctx, db)
		return nil, errors.Wrap(err, "ensuring indexes")
	}
	return &Store{
		Engine:    core.EngineMongo,
		Reviews:   mongorepos.NewReviewRepository(db),
		Tasks:     mongorepos.NewTaskRepository(db),
		Directory: mongorepos.NewDirectoryRepository(db),
		Configs:   mongorepos.NewConfigRepository(db),
		close: func(ctx context.Context) error {
			return mongorepos.Close(ctx, db)
		},
	}, nil
}

func openPostgres(conf *core.Config) (*Store, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	conn, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := sqlxrepos.NewDB(conn)
	return &Store{
		Engine:    core.EnginePostgres,
		Reviews:   sqlxrepos.NewReviewRepository(db),
		Tasks:     sqlxrepos.NewTaskRepository(db),
		Directory: sqlxrepos.NewDirectoryRepository(db),
		Configs:   sqlxrepos.NewConfigRepository(db),
		SQL:       conn,
		close: func(context.Context) error {
			return conn.Close()
		},
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}
