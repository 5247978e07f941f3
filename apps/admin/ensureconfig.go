package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) ensureConfig() error {
	conf, err := cli.settings.EnsureDefault(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.stdout(), "system config %s is active\n", conf.ID)
	return nil
}
