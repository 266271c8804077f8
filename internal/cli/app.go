// Package cli implements the ledger command-line front end on top of the
// services wired by the di package.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/aristath/holdings/internal/config"
	"github.com/aristath/holdings/internal/di"
	"github.com/aristath/holdings/internal/domain"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// DefaultUser owns data recorded from the command line when no -user is given.
const DefaultUser = "local"

// App holds what every command needs: configuration, the lazily wired
// container, the output streams and the global flags.
type App struct {
	cfg  *config.Config
	log  zerolog.Logger
	out  io.Writer
	errs io.Writer

	user   string
	asJSON bool

	container *di.Container
	wire      func(*config.Config, zerolog.Logger) (*di.Container, error)
}

// New creates the command-line application. Nothing is opened until a
// command runs.
func New(cfg *config.Config, log zerolog.Logger, out, errs io.Writer) *App {
	if out == nil {
		out = os.Stdout
	}
	if errs == nil {
		errs = os.Stderr
	}
	return &App{
		cfg:  cfg,
		log:  log,
		out:  out,
		errs: errs,
		user: DefaultUser,
		wire: di.Wire,
	}
}

// SetFlags registers the global flags on the top-level flag set.
func (a *App) SetFlags(f *flag.FlagSet) {
	f.StringVar(&a.user, "user", DefaultUser, "User id the command acts for")
	f.BoolVar(&a.asJSON, "json", false, "Print results as JSON")
}

// Register adds every command to the commander, grouped by concern.
func (a *App) Register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&accountOpenCmd{app: a}, "accounts")
	c.Register(&accountsCmd{app: a}, "accounts")

	c.Register(&positionOpenCmd{app: a}, "positions")
	c.Register(&positionsCmd{app: a}, "positions")
	c.Register(&setPriceCmd{app: a}, "positions")
	c.Register(&recomputeCmd{app: a}, "positions")
	c.Register(&twrCmd{app: a}, "positions")

	c.Register(&recordCmd{app: a}, "transactions")
	c.Register(&editCmd{recordCmd: recordCmd{app: a}}, "transactions")
	c.Register(&deleteCmd{app: a}, "transactions")
	c.Register(&transactionsCmd{app: a}, "transactions")

	c.Register(&reportCmd{app: a}, "reports")
	c.Register(&propertyCmd{app: a}, "reports")

	c.Register(&statusCmd{app: a}, "")
}

// Close releases the container if a command opened it.
func (a *App) Close() error {
	if a.container == nil {
		return nil
	}
	err := a.container.Close()
	a.container = nil
	return err
}

func (a *App) services() (*di.Container, error) {
	if a.container != nil {
		return a.container, nil
	}
	c, err := a.wire(a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.container = c
	return c, nil
}

// fail reports err and maps it to an exit status. Validation errors are
// the caller's fault; everything else is a failure.
func (a *App) fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(a.errs, "Error: %v\n", err)
	if errors.Is(err, domain.ErrValidation) {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}

func (a *App) usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(a.errs, format+"\n", args...)
	return subcommands.ExitUsageError
}

// Run registers the commands on a fresh commander and executes args.
func (a *App) Run(ctx context.Context, name string, args []string) subcommands.ExitStatus {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errs)
	a.SetFlags(fs)

	commander := subcommands.NewCommander(fs, name)
	commander.Output = a.out
	commander.Error = a.errs
	a.Register(commander)

	if err := fs.Parse(args); err != nil {
		return subcommands.ExitUsageError
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close ledger database")
		}
	}()
	return commander.Execute(ctx)
}
