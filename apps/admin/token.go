package main

import (
	"fmt"

	echoapi "github.com/trezcool/mentorbro/apps/api/echo"
)

func (cli *commandLine) token(subject, role string) error {
	switch role {
	case echoapi.RoleAdmin, echoapi.RoleReviewer, echoapi.RoleStudent:
	default:
		return errBadRole
	}
	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, subject, role))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.stdout(), token)
	return nil
}
