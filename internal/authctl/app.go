package authctl

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

// ErrUsage is returned for an unknown command or missing arguments.
var ErrUsage = errors.New("usage: authctl [config flags] list | add [-name NAME] <username> | delete <username>")

// UserAdmin is the part of services.UserService the CLI needs.
type UserAdmin interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.PublicUser, error)
	ListUsers(ctx context.Context) ([]*models.PublicUser, error)
	DeleteUser(ctx context.Context, username string) error
}

type App struct {
	svc    UserAdmin
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(svc UserAdmin, in io.Reader, out io.Writer) *App {
	return &App{svc: svc, reader: bufio.NewReader(in), out: out}
}

// Run executes one command. args must already be stripped of config flags.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list", "ls":
		return a.list(ctx)
	case "add":
		return a.add(ctx, rest)
	case "delete", "rm":
		return a.delete(ctx, rest)
	case "help":
		fmt.Fprintln(a.out, ErrUsage.Error())
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, ErrUsage)
	}
}

func (a *App) list(ctx context.Context) error {
	users, err := a.svc.ListUsers(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tFULL NAME\tCREATED")
	for _, u := range users {
		fullName := ""
		if u.FullName != nil {
			fullName = *u.FullName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.UserName, fullName, u.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func (a *App) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fullName := fs.String("name", "", "full name")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, ErrUsage)
	}
	if fs.NArg() != 1 {
		return ErrUsage
	}
	username := fs.Arg(0)

	password, err := GetNewPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	in := services.RegisterInput{Username: username, Password: string(password)}
	if *fullName != "" {
		in.FullName = fullName
	}

	user, err := a.svc.Register(ctx, in)
	switch {
	case errors.Is(err, common.ErrUserAlreadyExists):
		return fmt.Errorf("user %q already exists", username)
	case errors.Is(err, common.ErrValidation):
		return fmt.Errorf("username must be 3-50 characters and password 6-128 characters: %w", err)
	case err != nil:
		return err
	}

	fmt.Fprintf(a.out, "created user %s (%s)\n", user.UserName, user.ID)
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	if err := a.svc.DeleteUser(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted user %s\n", args[0])
	return nil
}
