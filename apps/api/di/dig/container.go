package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/mentorbro/apps/api/echo"
	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/notify"
	"github.com/trezcool/mentorbro/core/program"
	"github.com/trezcool/mentorbro/core/reminder"
	"github.com/trezcool/mentorbro/core/review"
	"github.com/trezcool/mentorbro/core/sysconfig"
	emailsvc "github.com/trezcool/mentorbro/services/email"
	logsvc "github.com/trezcool/mentorbro/services/logger"
	"github.com/trezcool/mentorbro/services/whatsapp"
	"github.com/trezcool/mentorbro/storage/store"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStore(conf *core.Config, loggerParam DBLoggerParam) *store.Store {
	db, err := store.Open(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up %s database: %v", conf.Database.Engine, err), err)
	}
	return db
}

func newConfigService(db *store.Store, validate *validator.Validate) *sysconfig.Service {
	return sysconfig.NewService(db.Configs, validate)
}

func newTaskService(db *store.Store, validate *validator.Validate) *program.Service {
	return program.NewService(db.Tasks, validate)
}

func newTransport(conf *core.Config, settings *sysconfig.Service, logger core.Logger) notify.Transport {
	return whatsapp.NewClient(conf, settings, logger)
}

func newEmailService(conf *core.Config, settings *sysconfig.Service, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, settings, logger)
}

type serviceParams struct {
	dig.In
	Conf      *core.Config
	Store     *store.Store
	Settings  *sysconfig.Service
	Transport notify.Transport
	Mailer    core.EmailService
	Logger    core.Logger
	Validate  *validator.Validate
}

func newReviewService(p serviceParams) *review.Service {
	return review.NewService(review.Deps{
		Repo:           p.Store.Reviews,
		Tasks:          p.Store.Tasks,
		Directory:      p.Store.Directory,
		Settings:       p.Settings,
		Transport:      p.Transport,
		Mailer:         p.Mailer,
		Logger:         p.Logger,
		Validate:       p.Validate,
		GroupRecipient: p.Conf.Whapi.GroupRecipient,
	})
}

func newScheduler(p serviceParams) *reminder.Scheduler {
	return reminder.NewScheduler(reminder.Deps{
		Reviews:        p.Store.Reviews,
		Tasks:          p.Store.Tasks,
		Directory:      p.Store.Directory,
		Settings:       p.Settings,
		Transport:      p.Transport,
		Logger:         p.Logger,
		GroupRecipient: p.Conf.Whapi.GroupRecipient,
	})
}

type serverParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Translator ut.Translator
	ReviewSvc  *review.Service
	TaskSvc    *program.Service
	ConfigSvc  *sysconfig.Service
	Transport  notify.Transport
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Translator: p.Translator,
		ReviewSvc:  p.ReviewSvc,
		TaskSvc:    p.TaskSvc,
		ConfigSvc:  p.ConfigSvc,
		Transport:  p.Transport,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStore))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(core.NewValidator))
	must(c.Provide(newConfigService))
	must(c.Provide(newTaskService))
	must(c.Provide(newTransport))
	must(c.Provide(newEmailService))
	must(c.Provide(newReviewService))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
