package main

import (
	"context"
	"fmt"
	"time"
)

// remind runs the reminder passes once. Reviews already reminded are skipped, so reruns are safe.
func (cli *commandLine) remind(pass string, at time.Time) error {
	ctx := context.Background()
	switch pass {
	case passDaily, passReminder, passAll:
	default:
		return errBadPass
	}

	if pass != passReminder {
		n, err := cli.scheduler.RunDailyPass(ctx, at)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.stdout(), "daily pass: %d reminder(s) sent\n", n)
	}
	if pass != passDaily {
		n, err := cli.scheduler.RunReminderPass(ctx, at)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.stdout(), "30-min pass: %d reminder(s) sent\n", n)
	}
	return nil
}
