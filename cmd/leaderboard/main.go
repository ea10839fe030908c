// Command leaderboard shows, records and inspects Upward run times from the
// terminal. It uses the same local ledger and online board as the game.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/upward-game/leaderboard/internal/config"
	"github.com/upward-game/leaderboard/internal/leaderboard"
	"github.com/upward-game/leaderboard/internal/localstore"
	"github.com/upward-game/leaderboard/internal/prefs"
	"github.com/upward-game/leaderboard/internal/remote"
	"github.com/upward-game/leaderboard/internal/worker"
)

var (
	colorTitle = color.New(color.FgGreen, color.Bold)
	colorWarn  = color.New(color.FgYellow)
	colorAlert = color.New(color.FgRed)
	colorFaint = color.New(color.FgHiBlack)
)

// uploadWait bounds how long record waits for the online submission.
const uploadWait = 15 * time.Second

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: leaderboard [flags] <command>

Commands:
  show                   refresh and print the leaderboard (online, else local)
  local                  print the local leaderboard only
  record <seconds> [name] record a finished run and upload it when online
  extract                print the top-level child objects of a JSON body read from stdin

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if err := run(args, *envFile); err != nil {
		colorAlert.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, envFile string) error {
	// extract needs nothing but stdin
	if args[0] == "extract" {
		return extract(os.Stdin, os.Stdout)
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := prefs.Open(prefs.OpenConfig{
		Backend:  cfg.PrefsBackend,
		Path:     cfg.PrefsPath,
		RedisURL: cfg.RedisURL,
		RedisKey: cfg.RedisKey,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("open prefs: %w", err)
	}
	defer p.Close()

	keys := localstore.CanonicalKeys
	if cfg.PrefsSpacedKeys {
		keys = localstore.SpacedKeys
	}
	ledger := localstore.New(p, keys, logger)

	display := terminalDisplay{out: os.Stdout, status: os.Stderr}
	viewCfg := leaderboard.ViewConfig{
		Display:         display,
		Local:           ledger,
		MaxEntries:      cfg.MaxEntries,
		NameColumnWidth: cfg.NameColumnWidth,
		FetchTimeout:    cfg.HTTPTimeout,
		Logger:          logger,
	}

	var client *remote.Client
	if cfg.Online() {
		client = remote.NewClient(remote.ClientConfig{
			BaseURL: cfg.LeaderboardURL,
			Timeout: cfg.HTTPTimeout,
			Logger:  logger,
		})
		viewCfg.Remote = client
	}
	view := leaderboard.NewView(viewCfg)

	switch args[0] {
	case "show":
		view.Refresh(ctx)
		return nil

	case "local":
		display.SetText(view.Render(ledger.ReadAll(), leaderboard.DefaultTitle))
		return nil

	case "record":
		if len(args) < 2 {
			return fmt.Errorf("record needs a time in seconds")
		}
		seconds, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid time %q: %w", args[1], err)
		}
		name := ""
		if len(args) > 2 {
			name = args[2]
		}
		return record(ctx, cfg, logger, ledger, client, seconds, name)

	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func record(ctx context.Context, cfg *config.Config, logger *zap.Logger, ledger *localstore.Store, client *remote.Client, seconds float64, name string) error {
	var uploader leaderboard.Uploader
	if client != nil {
		pool := worker.NewPool(worker.PoolConfig{
			WorkerCount: cfg.SubmitWorkers,
			QueueSize:   cfg.SubmitQueueSize,
			Submitter:   client,
			Logger:      logger,
		})
		pool.Start(ctx)
		defer pool.Stop()
		uploader = pool
	}

	flow := leaderboard.NewCompletion(ledger, uploader, logger)
	index, err := flow.Complete(seconds)
	if err != nil {
		return err
	}
	fmt.Printf("Recorded %s as run #%d\n", leaderboard.FormatSeconds(seconds), index+1)

	result, err := flow.Confirm(name)
	if err != nil {
		return err
	}
	if uploader == nil {
		colorFaint.Println("Offline: run kept locally only.")
		return nil
	}

	select {
	case ok := <-result:
		if ok {
			colorTitle.Println("Uploaded to the online leaderboard.")
		} else {
			colorWarn.Println("Upload failed; run kept locally.")
		}
	case <-time.After(uploadWait):
		colorWarn.Println("Upload still pending; run kept locally.")
	case <-ctx.Done():
	}
	return nil
}

func extract(in io.Reader, out io.Writer) error {
	body, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	for _, obj := range remote.ExtractChildObjects(string(body)) {
		fmt.Fprintln(out, obj)
	}
	return nil
}

// terminalDisplay prints the loading placeholder as status and everything
// else as the board itself, title highlighted.
type terminalDisplay struct {
	out    io.Writer
	status io.Writer
}

func (d terminalDisplay) SetText(text string) {
	if text == leaderboard.LoadingText {
		colorFaint.Fprintln(d.status, text)
		return
	}
	text = strings.TrimRight(text, "\n")
	title, body, found := strings.Cut(text, "\n")
	if !found {
		fmt.Fprintln(d.out, text)
		return
	}
	colorTitle.Fprintln(d.out, title)
	fmt.Fprintln(d.out, body)
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
