package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/mentorbro/apps/api/echo"
	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/notify"
	"github.com/trezcool/mentorbro/core/reminder"
	"github.com/trezcool/mentorbro/core/review"
	"github.com/trezcool/mentorbro/core/sysconfig"
	"github.com/trezcool/mentorbro/storage/store"
	"github.com/trezcool/mentorbro/tests"
)

type fixture struct {
	cli       *commandLine
	out       *bytes.Buffer
	transport *notify.Recorder
}

func setup(t *testing.T) *fixture {
	conf := core.NewTestConfig()
	db, err := store.Open(context.Background(), conf)
	require.NoError(t, err)

	settings := sysconfig.NewService(db.Configs, core.NewValidator(core.NewTranslator()))
	f := &fixture{out: new(bytes.Buffer), transport: notify.NewRecorder()}
	f.cli = &commandLine{
		conf:     conf,
		db:       db,
		settings: settings,
		scheduler: reminder.NewScheduler(reminder.Deps{
			Reviews:        db.Reviews,
			Tasks:          db.Tasks,
			Directory:      db.Directory,
			Settings:       settings,
			Transport:      f.transport,
			Logger:         testutil.NewLogger(t),
			GroupRecipient: conf.Whapi.GroupRecipient,
		}),
		out: f.out,
	}
	return f
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() expected an error")
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	f := setup(t)
	runCLITests(t, f.cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "migrate: not postgres", args: []string{"migrate", "up"}, wantErr: errNotSQL},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)
	f.cli.db.SQL = new(sql.DB)

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, f.cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "review_index", "sql"}},
	})
}

func Test_commandLine_ensureConfig(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.cli.run([]string{"admin", "ensureconfig"}))
	require.NoError(t, f.cli.run([]string{"admin", "ensureconfig"}))

	conf, err := f.cli.settings.Current(context.Background())
	require.NoError(t, err)
	line := fmt.Sprintf("system config %s is active\n", conf.ID)
	assert.Equal(t, line+line, f.out.String(), "the same document both times")
}

func Test_commandLine_remind(t *testing.T) {
	f := setup(t)
	day := time.Date(2025, 1, 25, 0, 0, 0, 0, core.IST)
	student := testutil.CreateStudent(t, f.cli.db.Directory, "Asha", "asha@mail.test", "9876543210", "")
	testutil.CreateReview(t, f.cli.db.Reviews, review.TaskReview{
		StudentID:     student.ID,
		ScheduledDate: day.UTC(),
		ScheduledTime: "05:30 AM",
	})

	runCLITests(t, f.cli, []cliTest{
		{name: "bad pass", args: []string{"remind", "-pass", "weekly"}, wantErr: errBadPass},
		{name: "bad time", args: []string{"remind", "-at", "tomorrow"}, wantErrStr: "at must be an RFC3339 time (got 'tomorrow')"},
	})
	assert.Empty(t, f.transport.Sent())

	require.NoError(t, f.cli.run([]string{"admin", "remind", "-pass", "all", "-at", "2025-01-25T05:00:00+05:30"}))
	assert.Equal(t, "daily pass: 1 reminder(s) sent\n30-min pass: 1 reminder(s) sent\n", f.out.String())
	assert.Len(t, f.transport.SentOf(notify.ReviewReminder), 2)

	f.out.Reset()
	require.NoError(t, f.cli.run([]string{"admin", "remind", "-pass", "reminder", "-at", "2025-01-25T05:01:00+05:30"}))
	assert.Equal(t, "30-min pass: 0 reminder(s) sent\n", f.out.String(), "already reminded")
}

func Test_commandLine_token(t *testing.T) {
	f := setup(t)
	runCLITests(t, f.cli, []cliTest{
		{name: "no subject", args: []string{"token", "-role", "admin"}, wantErr: errNoSubject},
		{name: "bad role", args: []string{"token", "-sub", "x", "-role", "root"}, wantErr: errBadRole},
	})

	f.out.Reset()
	require.NoError(t, f.cli.run([]string{"admin", "token", "-sub", "rv-1", "-role", "reviewer"}))

	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(strings.TrimSpace(f.out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(f.cli.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "rv-1", claims.Subject)
	assert.Equal(t, echoapi.RoleReviewer, claims.Role)
}
