package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/jhkim0602/monguri-sub002/apps/api/di"
	"github.com/jhkim0602/monguri-sub002/core/profile"
	"github.com/jhkim0602/monguri-sub002/core/subject"
	"github.com/jhkim0602/monguri-sub002/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = database.Migrate  // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB
	profiles *profile.Service
	subjects *subject.Service
	validate *validator.Validate
}

func newCommandLine(c *di.Container) *commandLine {
	return &commandLine{
		db:       c.SQLDB,
		profiles: c.Profiles,
		subjects: c.Subjects,
		validate: c.Validate,
	}
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]                                - run a goose command (up, down, status, redo, ...)")
	fmt.Println("  createprofile -role ROLE -name NAME -email EMAIL      - create a profile; the password is prompted next")
	fmt.Println("  resetpassword -email EMAIL                            - reset a profile's password")
	fmt.Println("  link -mentor EMAIL -mentee EMAIL                      - start a mentorship")
	fmt.Println("  unlink -id LINK_ID                                    - end a mentorship")
	fmt.Println("  addsubject -slug SLUG -name NAME -color HEX -text HEX - add a subject")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	createCmd := flag.NewFlagSet("createprofile", flag.ContinueOnError)
	createRole := createCmd.String("role", "", "mentor, mentee or admin.")
	createName := createCmd.String("name", "", "The display name.")
	createEmail := createCmd.String("email", "", "The login email. The password will be prompted next.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The profile's email. The password will be prompted next.")

	linkCmd := flag.NewFlagSet("link", flag.ContinueOnError)
	linkMentor := linkCmd.String("mentor", "", "The mentor's email.")
	linkMentee := linkCmd.String("mentee", "", "The mentee's email.")

	unlinkCmd := flag.NewFlagSet("unlink", flag.ContinueOnError)
	unlinkID := unlinkCmd.String("id", "", "The link id.")

	subjectCmd := flag.NewFlagSet("addsubject", flag.ContinueOnError)
	subjectSlug := subjectCmd.String("slug", "", "The subject slug, e.g. math.")
	subjectName := subjectCmd.String("name", "", "The display name.")
	subjectColor := subjectCmd.String("color", "", "The background color, e.g. #FFEEDD.")
	subjectText := subjectCmd.String("text", "", "The text color, e.g. #112233.")
	subjectOrder := subjectCmd.Int("order", 0, "The sort order.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	case "createprofile":
		if err := createCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *createRole == "" || *createName == "" || *createEmail == "" {
			createCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			createCmd.Usage()
			return errHelp
		}
		p, err := cli.createProfile(ctx, *createRole, *createName, *createEmail, pwd)
		if err != nil {
			return err
		}
		fmt.Printf("created %s %s (%s)\n", p.Role, p.Email, p.ID)
		return nil

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordEmail, pwd)

	case "link":
		if err := linkCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *linkMentor == "" || *linkMentee == "" {
			linkCmd.Usage()
			return errHelp
		}
		link, err := cli.link(ctx, *linkMentor, *linkMentee)
		if err != nil {
			return err
		}
		fmt.Printf("linked (%s)\n", link.ID)
		return nil

	case "unlink":
		if err := unlinkCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *unlinkID == "" {
			unlinkCmd.Usage()
			return errHelp
		}
		return cli.profiles.DeactivateLink(ctx, *unlinkID)

	case "addsubject":
		if err := subjectCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		s, err := cli.addSubject(ctx, subject.NewSubject{
			Slug:         *subjectSlug,
			Name:         *subjectName,
			ColorHex:     *subjectColor,
			TextColorHex: *subjectText,
			SortOrder:    *subjectOrder,
		})
		if err != nil {
			return err
		}
		fmt.Printf("added subject %s (%s)\n", s.Slug, s.ID)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(os.Stdout)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}
