// Command guestalbum is a command line client for the event album service.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	guestalbum "github.com/goliatone/go-guestalbum"
	"github.com/goliatone/go-guestalbum/activitymap"
	"github.com/goliatone/go-guestalbum/api"
	"github.com/goliatone/go-guestalbum/config"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

// run executes one CLI invocation. A nil environ reads the process
// environment.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, environ []string) int {
	global := pflag.NewFlagSet("guestalbum", pflag.ContinueOnError)
	global.SetOutput(stderr)
	global.SetInterspersed(false)
	config.BindFlags(global)
	global.Usage = func() { usage(stderr, global) }

	if err := global.Parse(args); err != nil {
		return exitUsage
	}

	rest := global.Args()
	if len(rest) == 0 {
		usage(stderr, global)
		return exitUsage
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		usage(stderr, global)
		return exitUsage
	}

	cfg, err := config.Load(config.LoadOptions{Flags: global, Environ: environ})
	if err != nil {
		fmt.Fprintf(stderr, "config: %s\n", guestalbum.ErrorMessage(err, err.Error()))
		return exitError
	}

	a, err := newApp(ctx, cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "startup: %v\n", err)
		return exitError
	}
	defer a.Close()

	flags := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	if cmd.flags != nil {
		cmd.flags(flags)
	}
	if err := flags.Parse(rest[1:]); err != nil {
		return exitUsage
	}

	if cmd.session {
		a.manager.Start(ctx)
	}

	if err := cmd.run(ctx, a, flags); err != nil {
		fmt.Fprintf(stderr, "%s: %s\n", cmd.name, guestalbum.ErrorMessage(err, err.Error()))
		return exitError
	}
	return exitOK
}

// app holds the wired collaborators for one invocation.
type app struct {
	cfg       *config.Config
	logger    logrusLogger
	client    *api.Client
	manager   *guestalbum.Manager
	owner     *guestalbum.Owner
	resolver  *guestalbum.Resolver
	gate      *guestalbum.Gate
	submitter *guestalbum.Submitter
	out       io.Writer
	closers   []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) (*app, error) {
	logger, logCloser, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return nil, err
	}

	creds, storeCloser, err := openStore(ctx, cfg.Store)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	client := api.New(api.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
	})
	anonymous := client.Anonymous()

	sink := activityLogger(logger)

	manager := guestalbum.NewManager(client, creds,
		guestalbum.WithTokenKey(cfg.Store.Key),
		guestalbum.WithManagerLogger(logger.named("session")),
		guestalbum.WithActivitySink(sink),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		manager:  manager,
		owner:    guestalbum.NewOwner(manager, client),
		resolver: guestalbum.NewResolver(anonymous, guestalbum.WithResolverLogger(logger.named("resolver"))),
		gate:     guestalbum.NewGate(guestalbum.WithGateLogger(logger.named("admission"))),
		submitter: guestalbum.NewSubmitter(anonymous,
			guestalbum.WithSubmitterLogger(logger.named("upload")),
			guestalbum.WithSubmitterActivitySink(sink),
		),
		out:     stdout,
		closers: []io.Closer{storeCloser, logCloser},
	}, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close: %v", err)
		}
	}
}

// activityLogger writes every activity event as one structured debug line.
func activityLogger(logger logrusLogger) guestalbum.ActivitySink {
	entry := logger.entry.WithField("component", "activity")
	return guestalbum.ActivitySinkFunc(func(_ context.Context, event guestalbum.ActivityEvent) error {
		record := activitymap.Normalize(event, activitymap.WithDefaultChannel("cli"))
		entry.WithFields(record.Fields()).Debug(record.Verb)
		return nil
	})
}

func usage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprintln(w, "usage: guestalbum [global flags] <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].summary)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "global flags:")
	fmt.Fprint(w, indent(global.FlagUsages()))
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n") + "\n"
}
