package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/reminder"
	"github.com/trezcool/mentorbro/core/sysconfig"
	"github.com/trezcool/mentorbro/storage/store"
)

// Reminder passes
const (
	passDaily    = "daily"
	passReminder = "reminder"
	passAll      = "all"
)

var (
	errHelp      = errors.New("help provided")
	errNotSQL    = errors.New("migrations only apply to the postgres engine")
	errBadPass   = errors.New("pass must be one of: daily, reminder, all")
	errBadRole   = errors.New("role must be one of: admin, reviewer, student")
	errNoSubject = errors.New("sub is required")
)

type commandLine struct {
	conf      *core.Config
	db        *store.Store
	settings  *sysconfig.Service
	scheduler *reminder.Scheduler
	out       io.Writer
	now       func() time.Time
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.stdout(), "Usage:")
	fmt.Fprintln(cli.stdout(), "  migrate COMMAND [ARGS] - run a goose migration command (postgres only)")
	fmt.Fprintln(cli.stdout(), "  ensureconfig - create the default system config if none is active")
	fmt.Fprintln(cli.stdout(), "  remind -pass daily|reminder|all [-at RFC3339] - run the review reminder passes once")
	fmt.Fprintln(cli.stdout(), "  token -sub ID -role admin|reviewer|student - print an API token")
}

func (cli *commandLine) stdout() io.Writer {
	if cli.out == nil {
		return os.Stdout
	}
	return cli.out
}

func (cli *commandLine) clock() time.Time {
	if cli.now == nil {
		return time.Now()
	}
	return cli.now()
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	remindCmd := flag.NewFlagSet("remind", flag.ContinueOnError)
	remindPass := remindCmd.String("pass", passAll, "The pass to run: daily, reminder or all.")
	remindAt := remindCmd.String("at", "", "Evaluate the passes as if it was this RFC3339 time. Defaults to now.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenSub := tokenCmd.String("sub", "", "The id of the student or reviewer, any id for admins.")
	tokenRole := tokenCmd.String("role", "", "The role of the token: admin, reviewer or student.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "ensureconfig":
		return cli.ensureConfig()
	case "remind":
		if err := remindCmd.Parse(args[2:]); err != nil {
			return err
		}
		at := cli.clock()
		if *remindAt != "" {
			t, err := time.Parse(time.RFC3339, *remindAt)
			if err != nil {
				return fmt.Errorf("at must be an RFC3339 time (got '%s')", *remindAt)
			}
			at = t
		}
		return cli.remind(*remindPass, at)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenSub == "" {
			return errNoSubject
		}
		return cli.token(*tokenSub, *tokenRole)
	default:
		cli.printUsage()
		return errHelp
	}
}
