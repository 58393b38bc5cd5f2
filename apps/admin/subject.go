package main

import (
	"context"

	"github.com/jhkim0602/monguri-sub002/core/subject"
)

func (cli *commandLine) addSubject(ctx context.Context, ns subject.NewSubject) (subject.Subject, error) {
	if err := ns.Validate(cli.validate); err != nil {
		return subject.Subject{}, err
	}
	return cli.subjects.Create(ctx, ns)
}
