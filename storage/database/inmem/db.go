// Package inmemdb stores everything in process memory. Used by tests and the "memory" database engine.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/mentorbro/core/directory"
	"github.com/trezcool/mentorbro/core/program"
	"github.com/trezcool/mentorbro/core/review"
	"github.com/trezcool/mentorbro/core/sysconfig"
)

type (
	DB struct {
		review    *reviewTable
		task      *taskTable
		directory *directoryTables
		config    *configTable
	}

	reviewTable struct {
		table map[string]*review.TaskReview
		mutex sync.RWMutex
	}

	taskTable struct {
		table map[string]*program.Task
		mutex sync.RWMutex
	}

	directoryTables struct {
		students  map[string]*directory.Student
		reviewers map[string]*directory.Reviewer
		programs  map[string]*directory.Program
		batches   map[string]*directory.Batch
		mutex     sync.RWMutex
	}

	configTable struct {
		table map[string]*sysconfig.SystemConfig
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		review: &reviewTable{table: make(map[string]*review.TaskReview)},
		task:   &taskTable{table: make(map[string]*program.Task)},
		directory: &directoryTables{
			students:  make(map[string]*directory.Student),
			reviewers: make(map[string]*directory.Reviewer),
			programs:  make(map[string]*directory.Program),
			batches:   make(map[string]*directory.Batch),
		},
		config: &configTable{table: make(map[string]*sysconfig.SystemConfig)},
	}
}

func newID() string {
	return uuid.New().String()
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
