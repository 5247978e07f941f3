package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/reminder"
	"github.com/trezcool/mentorbro/core/sysconfig"
	logsvc "github.com/trezcool/mentorbro/services/logger"
	"github.com/trezcool/mentorbro/services/whatsapp"
	"github.com/trezcool/mentorbro/storage/store"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	ctx := context.Background()
	db, err := store.Open(ctx, conf)
	if err != nil {
		logger.Fatal("setting up database: "+err.Error(), err)
	}

	// set up services
	settings := sysconfig.NewService(db.Configs, core.NewValidator(core.NewTranslator()))
	scheduler := reminder.NewScheduler(reminder.Deps{
		Reviews:        db.Reviews,
		Tasks:          db.Tasks,
		Directory:      db.Directory,
		Settings:       settings,
		Transport:      whatsapp.NewClient(conf, settings, logger),
		Logger:         logger,
		GroupRecipient: conf.Whapi.GroupRecipient,
	})

	// start CLI
	cli := commandLine{
		conf:      conf,
		db:        db,
		settings:  settings,
		scheduler: scheduler,
	}
	err = cli.run(os.Args)
	_ = db.Close(ctx)
	if err != nil {
		if err != errHelp {
			logger.Error("\nerror: " + err.Error())
		}
		os.Exit(1)
	}
}
