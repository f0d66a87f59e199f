package main

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"
)

// createSuperuser updates or creates an active admin user.
func (cli *commandLine) createSuperuser(email, pwd string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.Wrapf(err, "invalid email %q", email)
	}
	usr, err := cli.usrSvc.SaveSuperuser(context.Background(), email, pwd)
	if err != nil {
		return errors.Wrap(err, "saving superuser")
	}
	fmt.Printf("Superuser %q saved.\n", usr.Email)
	return nil
}
