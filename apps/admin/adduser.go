package main

import (
	"context"
	"fmt"

	"github.com/kat-co/vala"

	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/user"
)

// checkRequired fails on the first empty param, named by its key.
func checkRequired(params map[string]string) error {
	checkers := make([]vala.Checker, 0, len(params))
	for name, value := range params {
		checkers = append(checkers, vala.StringNotEmpty(value, name))
	}
	return vala.BeginValidation().Validate(checkers...).Check()
}

// addUser creates an active user.User, applying the same validation as the API.
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string) error {
	ctx := context.Background()

	nu := user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           roles,
	}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}

	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.output(), "user %q created (id: %s)\n", usr.Name, usr.ID)
	return nil
}
