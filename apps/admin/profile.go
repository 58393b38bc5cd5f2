package main

import (
	"context"

	"github.com/jhkim0602/monguri-sub002/core/profile"
)

// createProfile creates a profile of any role, admins included.
func (cli *commandLine) createProfile(ctx context.Context, role, name, email, pwd string) (profile.Profile, error) {
	np := profile.NewProfile{
		Role:            role,
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
	}.AsOperator()
	if err := np.Validate(ctx, cli.validate, cli.profiles); err != nil {
		return profile.Profile{}, err
	}
	return cli.profiles.Create(ctx, np)
}

func (cli *commandLine) resetPassword(ctx context.Context, email, pwd string) error {
	p, err := cli.profiles.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return cli.profiles.SetPassword(ctx, p.ID, pwd)
}

func (cli *commandLine) link(ctx context.Context, mentorEmail, menteeEmail string) (profile.Link, error) {
	mentor, err := cli.profiles.GetByEmail(ctx, mentorEmail)
	if err != nil {
		return profile.Link{}, err
	}
	mentee, err := cli.profiles.GetByEmail(ctx, menteeEmail)
	if err != nil {
		return profile.Link{}, err
	}
	return cli.profiles.CreateLink(ctx, mentor.ID, mentee.ID)
}
