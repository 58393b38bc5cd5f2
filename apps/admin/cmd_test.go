package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/profile"
	"github.com/jhkim0602/monguri-sub002/tests"
)

const validPwd = "Gr8-Mentor!x"

func setup(t *testing.T) (*commandLine, profile.Repository) {
	c, _ := testutil.NewContainer(t)
	return newCommandLine(c), c.Repos.Profiles
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Equal(t, tt.wantErrStr, err.Error())
	default:
		assert.NoError(t, err)
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)
	cli.db = new(sql.DB) // never dereferenced by the mock

	migrateFunc = func(_ context.Context, _ *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("memory engine", func(t *testing.T) {
		cli.db = nil
		assert.Equal(t, errNoDatabase, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_createProfile(t *testing.T) {
	cli, repo := setup(t)
	testutil.CreateProfile(t, repo, core.RoleMentor, "Taken", "taken@test.test", validPwd, true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"createprofile"}, wantErr: errHelp},
		{name: "no password", args: []string{"createprofile", "-role", "admin", "-name", "Root", "-email", "root@test.test"}, wantErr: errHelp},
		{name: "weak password", args: []string{"createprofile", "-role", "admin", "-name", "Root", "-email", "root@test.test"}, pwd: "password"},
		{name: "email taken", args: []string{"createprofile", "-role", "mentor", "-name", "Other", "-email", "TAKEN@test.test"}, pwd: validPwd},
		{name: "admin", args: []string{"createprofile", "-role", "admin", "-name", "Root", "-email", "root@test.test"}, pwd: validPwd},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt.pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch tt.name {
			case "weak password":
				assert.IsType(t, validator.ValidationErrors{}, err)
			case "email taken":
				var verr *core.ValidationError
				assert.ErrorAs(t, err, &verr)
			default:
				tt.check(t, err)
			}
		})
	}

	admin, err := cli.profiles.GetByEmail(context.Background(), "root@test.test")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.NoError(t, admin.CheckPassword(validPwd))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, repo := setup(t)
	p := testutil.CreateProfile(t, repo, core.RoleMentee, "Minsu", "minsu@test.test", "Old-Passw0rd!", true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.test"}, wantErr: errHelp},
		{name: "profile not found", args: []string{"resetpassword", "-email", "lol@test.test"}, pwd: validPwd, wantErr: profile.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", p.Email}, pwd: validPwd},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt.pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	refreshed, err := cli.profiles.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword(validPwd))
}

func Test_commandLine_link(t *testing.T) {
	cli, repo := setup(t)
	mentor := testutil.CreateProfile(t, repo, core.RoleMentor, "Mentor", "mentor@test.test", "", true)
	mentee := testutil.CreateProfile(t, repo, core.RoleMentee, "Mentee", "mentee@test.test", "", true)

	tests := []cliTest{
		{name: "no args", args: []string{"link"}, wantErr: errHelp},
		{name: "unknown mentor", args: []string{"link", "-mentor", "lol@test.test", "-mentee", mentee.Email}, wantErr: profile.ErrNotFound},
		{name: "link", args: []string{"link", "-mentor", mentor.Email, "-mentee", mentee.Email}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	link, err := cli.profiles.CheckLinked(context.Background(), mentor.ID, mentee.ID)
	require.NoError(t, err)

	require.NoError(t, cli.run([]string{"admin", "unlink", "-id", link.ID}))
	_, err = cli.profiles.CheckLinked(context.Background(), mentor.ID, mentee.ID)
	assert.Equal(t, profile.ErrNotLinked, err)
}

func Test_commandLine_addSubject(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "add", args: []string{"addsubject", "-slug", "math", "-name", "수학", "-color", "#FFEEDD", "-text", "#112233"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("duplicate slug", func(t *testing.T) {
		err := cli.run([]string{"admin", "addsubject", "-slug", "math", "-name", "Math", "-color", "#FFEEDD", "-text", "#112233"})
		var verr *core.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	subjects, err := cli.subjects.List(context.Background())
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "math", subjects[0].Slug)
}
