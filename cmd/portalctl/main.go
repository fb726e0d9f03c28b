// portalctl signs in to the training portal backend from a terminal and
// inspects the background event queue.
//
// The session is kept in the user's config directory (or --state-dir) so
// that whoami and can work across invocations until the token expires.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/akademi/egitim-portal/cmd/portalctl/cli"
	"github.com/akademi/egitim-portal/internal/auth"
	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/platform/cache"
)

type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
func (e exitError) ExitCode() int { return int(e) }

func main() {
	if err := run(os.Args[1:]); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type globals struct {
	backendURL string
	redisAddr  string
	stateDir   string
	timeout    time.Duration
	jsonOutput bool
	verbose    bool
}

func run(args []string) error {
	var g globals
	flagSet := pflag.NewFlagSet("portalctl", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&g.backendURL, "backend", envOr("BACKEND_URL", "http://localhost:8080/api"), "backend API base URL")
	flagSet.StringVar(&g.redisAddr, "redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "redis address for the queue command")
	flagSet.StringVar(&g.stateDir, "state-dir", "", "directory holding the saved session (default: user config dir)")
	flagSet.DurationVar(&g.timeout, "timeout", 10*time.Second, "backend request timeout")
	flagSet.BoolVar(&g.jsonOutput, "json", false, "print JSON instead of text")
	flagSet.BoolVarP(&g.verbose, "verbose", "v", false, "log debug output to stderr")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(os.Stderr, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(os.Stderr, flagSet)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cli.Output{JSONOutput: g.jsonOutput, Stdout: os.Stdout, Stderr: os.Stderr}
	command, rest := flagSet.Arg(0), flagSet.Args()[1:]

	if command == "queue" {
		return runQueue(ctx, g, out, rest)
	}

	sessions, err := newSessionCLI(g)
	if err != nil {
		return err
	}

	var code int
	switch command {
	case "login":
		code, err = runLogin(ctx, sessions, out, rest)
	case "whoami":
		code = sessions.WhoamiCommand(ctx, out)
	case "can":
		code, err = runCan(ctx, sessions, out, rest)
	case "logout":
		code = sessions.LogoutCommand(ctx, out)
	default:
		printHelp(os.Stderr, flagSet)
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return err
	}
	if code != cli.ExitOK {
		return exitError(code)
	}
	return nil
}

func newSessionCLI(g globals) (*cli.SessionCLI, error) {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var storage *auth.FileStorage
	if g.stateDir != "" {
		storage = auth.NewFileStorage(g.stateDir)
	} else {
		var err error
		storage, err = auth.DefaultFileStorage()
		if err != nil {
			return nil, err
		}
	}
	client := backend.NewClient(g.backendURL, backend.WithTimeout(g.timeout), backend.WithLogger(logger))
	return cli.NewSessionCLI(auth.NewStore(storage, client, auth.WithLogger(logger)))
}

func runLogin(ctx context.Context, sessions *cli.SessionCLI, out cli.Output, args []string) (int, error) {
	opts := cli.LoginOptions{Output: out}
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	fs.StringVarP(&opts.Email, "email", "e", "", "account e-mail")
	fs.StringVarP(&opts.Password, "password", "p", "", "account password (default: $PORTAL_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return cli.ExitError, err
	}
	if opts.Password == "" {
		opts.Password = os.Getenv("PORTAL_PASSWORD")
	}
	return sessions.LoginCommand(ctx, opts), nil
}

func runCan(ctx context.Context, sessions *cli.SessionCLI, out cli.Output, args []string) (int, error) {
	opts := cli.CanOptions{Output: out}
	fs := pflag.NewFlagSet("can", pflag.ContinueOnError)
	fs.BoolVar(&opts.All, "all", false, "require every grant instead of any")
	if err := fs.Parse(args); err != nil {
		return cli.ExitError, err
	}
	opts.Grants = fs.Args()
	return sessions.CanCommand(ctx, opts), nil
}

func runQueue(ctx context.Context, g globals, out cli.Output, args []string) error {
	opts := cli.QueueOptions{Output: out}
	fs := pflag.NewFlagSet("queue", pflag.ContinueOnError)
	fs.IntVar(&opts.RetrySample, "retries", 0, "also list up to N events waiting for retry")
	if err := fs.Parse(args); err != nil {
		return err
	}
	redisOpts := cache.Options{Addr: g.redisAddr, Password: os.Getenv("REDIS_PASSWORD")}
	queue, err := cli.NewQueueCLI(redisOpts.Asynq())
	if err != nil {
		return err
	}
	defer func() {
		_ = queue.Close()
	}()
	if code := queue.QueueCommand(ctx, opts); code != cli.ExitOK {
		return exitError(code)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `portalctl: command line access to the training portal.

Usage:
  portalctl [flags] login --email EMAIL [--password PASS]
  portalctl [flags] whoami
  portalctl [flags] can [--all] module.action...
  portalctl [flags] logout
  portalctl [flags] queue [--retries N]

Exit codes: 0 ok, 1 error, 10 permission denied, 11 not logged in.

Flags:
%s`, flagSet.FlagUsages())
}
