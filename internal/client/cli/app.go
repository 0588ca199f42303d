// Package cli implements the miretia client commands: register, get, list
// and delete.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/miretia/internal/common"
	pb "github.com/dmitrijs2005/miretia/internal/proto"
)

// ErrRejected is returned when the server answered with field errors.
var ErrRejected = errors.New("request rejected")

// ErrUsage is returned for malformed command lines.
var ErrUsage = errors.New("usage error")

// AccountsClient is the subset of the gRPC client the commands use.
type AccountsClient interface {
	Register(ctx context.Context, username, email string, password []byte) (*pb.Response, error)
	LookupByID(ctx context.Context, id string) (*pb.Response, error)
	LookupByEmail(ctx context.Context, email string) (*pb.Response, error)
	LookupByUsername(ctx context.Context, username string) (*pb.Response, error)
	List(ctx context.Context) (*pb.Response, error)
	Delete(ctx context.Context, id string) (*pb.Response, error)
}

type App struct {
	client  AccountsClient
	in      *bufio.Reader
	out     io.Writer
	timeout time.Duration
}

func NewApp(c AccountsClient, in io.Reader, out io.Writer, timeout time.Duration) *App {
	return &App{client: c, in: bufio.NewReader(in), out: out, timeout: timeout}
}

const usage = `Usage: miretia-client [-a host:port] [-t timeout] [-c config.json] <command> [flags]

Commands:
  register [-username name] [-email address]   create an account (password is prompted)
  get -id id | -email address | -username name look an account up
  list                                         list all accounts
  delete -id id                                delete an account
  help                                         show this message
`

// Run executes the command in args (command name first).
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.Register(ctx, rest)
	case "get":
		return a.Get(ctx, rest)
	case "list", "l":
		return a.List(ctx, rest)
	case "delete":
		return a.Delete(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprintf(a.out, "unknown command %q\n\n%s", cmd, usage)
		return ErrUsage
	}
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// Register creates an account. Missing username or email are prompted for;
// the password is always read from the terminal and wiped afterwards.
func (a *App) Register(ctx context.Context, args []string) error {
	var username, email string
	fs := a.flagSet("register")
	fs.StringVar(&username, "username", "", "user name")
	fs.StringVar(&email, "email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	var err error
	if username == "" {
		if username, err = GetSimpleText(a.in, "Enter user name", a.out); err != nil {
			return err
		}
	}
	if email == "" {
		if email, err = GetSimpleText(a.in, "Enter email", a.out); err != nil {
			return err
		}
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.client.Register(ctx, username, email, password)
	if err != nil {
		return err
	}
	return a.printAccount(resp)
}

// Get looks an account up by exactly one of -id, -email or -username.
func (a *App) Get(ctx context.Context, args []string) error {
	var id, email, username string
	fs := a.flagSet("get")
	fs.StringVar(&id, "id", "", "account id")
	fs.StringVar(&email, "email", "", "email address")
	fs.StringVar(&username, "username", "", "user name")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	set := 0
	fs.Visit(func(*flag.Flag) { set++ })
	if set != 1 {
		return fmt.Errorf("%w: get needs exactly one of -id, -email, -username", ErrUsage)
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var (
		resp *pb.Response
		err  error
	)
	switch {
	case isSet(fs, "id"):
		resp, err = a.client.LookupByID(ctx, id)
	case isSet(fs, "email"):
		resp, err = a.client.LookupByEmail(ctx, email)
	default:
		resp, err = a.client.LookupByUsername(ctx, username)
	}
	if err != nil {
		return err
	}
	return a.printAccount(resp)
}

func (a *App) List(ctx context.Context, _ []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.client.List(ctx)
	if err != nil {
		return err
	}
	if len(resp.Accounts) == 0 {
		fmt.Fprintln(a.out, "no accounts")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tCREATED")
	for _, acc := range resp.Accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", acc.ID, acc.Username, acc.Email, acc.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func (a *App) Delete(ctx context.Context, args []string) error {
	var id string
	fs := a.flagSet("delete")
	fs.StringVar(&id, "id", "", "account id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if id == "" {
		return fmt.Errorf("%w: delete needs -id", ErrUsage)
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.client.Delete(ctx, id)
	if err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		return a.printErrors(resp.Errors)
	}
	fmt.Fprintf(a.out, "deleted %s\n", id)
	return nil
}

func (a *App) printAccount(resp *pb.Response) error {
	if len(resp.Errors) > 0 {
		return a.printErrors(resp.Errors)
	}
	if resp.Account == nil {
		return errors.New("empty response")
	}

	acc := resp.Account
	tw := tabwriter.NewWriter(a.out, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", acc.ID)
	fmt.Fprintf(tw, "username:\t%s\n", acc.Username)
	fmt.Fprintf(tw, "email:\t%s\n", acc.Email)
	fmt.Fprintf(tw, "created:\t%s\n", acc.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "updated:\t%s\n", acc.UpdatedAt.Format(time.RFC3339))
	return tw.Flush()
}

func (a *App) printErrors(errs []pb.FieldError) error {
	for _, e := range errs {
		fmt.Fprintf(a.out, "%s: %s\n", e.Field, e.Message)
	}
	return ErrRejected
}

func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
