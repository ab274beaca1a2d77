// Package main is the entrypoint for the TeamPulse service and operator CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/civil"
	"github.com/jessevdk/go-flags"
	"github.com/samber/mo"

	"github.com/edgard/teampulse/internal/aggregate"
	"github.com/edgard/teampulse/internal/domain"

	_ "time/tzdata"
)

type globalOptions struct {
	Config string `short:"c" long:"config" description:"Path to configuration file (defaults to ./config.yaml)"`
}

// cli carries state shared by all commands.
type cli struct {
	ctx  context.Context
	opts globalOptions
	out  io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(exitCode)
}

// run parses args, executes the selected command and returns an exit code.
func run(ctx context.Context, args []string, out io.Writer) int {
	c := &cli{ctx: ctx, out: out}
	parser := newParser(c)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return 0
		}
		return 1
	}
	return 0
}

func newParser(c *cli) *flags.Parser {
	parser := flags.NewParser(&c.opts, flags.Default)
	parser.SubcommandsOptional = false

	commands := []struct {
		name, short, long string
		data              any
	}{
		{"serve", "Run the scheduler and event listener", "Runs scheduled ingestion, aggregation and maintenance, plus the Socket Mode listener when configured, until interrupted.", &serveCommand{cli: c}},
		{"daily", "Aggregate one day", "Aggregates every channel for one calendar day, today by default.", &dailyCommand{cli: c}},
		{"weekly", "Generate a weekly insight", "Generates the weekly insight for the week containing the given date, the current week by default.", &weeklyCommand{cli: c}},
		{"backfill", "Re-aggregate recent days", "Re-aggregates the trailing days ending today, oldest first, then regenerates the current week.", &backfillCommand{cli: c}},
		{"ingest", "Poll monitored channels once", "Fetches and scores new messages from every monitored channel.", &ingestCommand{cli: c}},
		{"channels", "Manage monitored channels", "Adds, removes or lists monitored channels.", &channelsCommand{cli: c}},
	}
	for _, cmd := range commands {
		if _, err := parser.AddCommand(cmd.name, cmd.short, cmd.long, cmd.data); err != nil {
			panic(fmt.Sprintf("failed to register command %s: %v", cmd.name, err))
		}
	}
	return parser
}

// withApp builds the application for one command and closes it afterwards.
func (c *cli) withApp(fn func(a *app) error) error {
	a, err := newApp(c.ctx, c.opts.Config)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// parseDate parses an optional YYYY-MM-DD flag value.
func parseDate(flag, value string) (mo.Option[civil.Date], error) {
	if value == "" {
		return mo.None[civil.Date](), nil
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		return mo.None[civil.Date](), fmt.Errorf("%w: --%s must be YYYY-MM-DD, got %q", domain.ErrInvalidInput, flag, value)
	}
	return mo.Some(d), nil
}

type serveCommand struct {
	cli *cli
}

func (s *serveCommand) Execute(args []string) error {
	return s.cli.withApp(func(a *app) error {
		b, err := a.newBot()
		if err != nil {
			return err
		}
		a.log.Info("Starting TeamPulse service...", "team_id", a.cfg.Team.ID)
		if err := b.Run(s.cli.ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		a.log.Info("TeamPulse service stopped gracefully.")
		return nil
	})
}

type dailyCommand struct {
	cli  *cli
	Date string `long:"date" description:"Day to aggregate (YYYY-MM-DD)"`
}

func (d *dailyCommand) Execute(args []string) error {
	date, err := parseDate("date", d.Date)
	if err != nil {
		return err
	}
	return d.cli.withApp(func(a *app) error {
		run, err := a.pipeline.RunDaily(d.cli.ctx, date)
		if printErr := d.cli.print(run); printErr != nil {
			return printErr
		}
		return err
	})
}

type weeklyCommand struct {
	cli       *cli
	WeekStart string `long:"week-start" description:"Any day of the week to generate (YYYY-MM-DD), normalized to Monday"`
}

func (w *weeklyCommand) Execute(args []string) error {
	start, err := parseDate("week-start", w.WeekStart)
	if err != nil {
		return err
	}
	return w.cli.withApp(func(a *app) error {
		run, err := a.pipeline.RunWeekly(w.cli.ctx, start)
		if printErr := w.cli.print(run); printErr != nil {
			return printErr
		}
		return err
	})
}

type backfillCommand struct {
	cli  *cli
	Days int `long:"days" default:"7" description:"Number of trailing days to re-aggregate (1-30)"`
}

func (b *backfillCommand) Execute(args []string) error {
	if b.Days < 1 || b.Days > aggregate.MaxBackfillDays {
		return fmt.Errorf("%w: --days must be between 1 and %d, got %d", domain.ErrInvalidInput, aggregate.MaxBackfillDays, b.Days)
	}
	return b.cli.withApp(func(a *app) error {
		run, err := a.pipeline.Backfill(b.cli.ctx, b.Days)
		if run != nil {
			if printErr := b.cli.print(run); printErr != nil {
				return printErr
			}
		}
		return err
	})
}

var errSlackDisabled = errors.New("slack.bot_token is not configured")

type ingestCommand struct {
	cli *cli
}

func (i *ingestCommand) Execute(args []string) error {
	return i.cli.withApp(func(a *app) error {
		if a.ingest == nil {
			return errSlackDisabled
		}
		res, err := a.ingest.PollChannels(i.cli.ctx)
		if err != nil {
			return err
		}
		if err := i.cli.print(res); err != nil {
			return err
		}
		return res.Run.Err()
	})
}

type channelsCommand struct {
	cli     *cli
	Add     []string `long:"add" description:"Channel id to start monitoring (repeatable)"`
	Remove  string   `long:"remove" description:"Channel id to stop monitoring"`
	List    bool     `long:"list" description:"List monitored channels"`
	AddedBy string   `long:"added-by" default:"system" description:"Who added the channels"`
}

func (c *channelsCommand) Execute(args []string) error {
	if len(c.Add) == 0 && c.Remove == "" && !c.List {
		return fmt.Errorf("%w: one of --add, --remove or --list is required", domain.ErrInvalidInput)
	}
	return c.cli.withApp(func(a *app) error {
		if a.ingest == nil {
			return errSlackDisabled
		}
		out := map[string]any{}
		if len(c.Add) > 0 {
			results, err := a.ingest.AddChannels(c.cli.ctx, c.Add, c.AddedBy)
			if err != nil {
				return err
			}
			out["added"] = results
		}
		if c.Remove != "" {
			if err := a.ingest.RemoveChannel(c.cli.ctx, c.Remove); err != nil {
				return err
			}
			out["removed"] = c.Remove
		}
		if c.List {
			channels, err := a.ingest.ListChannels(c.cli.ctx)
			if err != nil {
				return err
			}
			out["channels"] = channels
		}
		return c.cli.print(out)
	})
}
