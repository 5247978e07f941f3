package main

import (
	"github.com/trezcool/mentorbro/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.db.SQL == nil {
		return errNotSQL
	}
	return gooseRunFunc(cli.db.SQL, args[0], args[1:]...)
}
