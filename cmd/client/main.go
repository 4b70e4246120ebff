package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/hitushen/localbrowser/internal/apiclient"
	"github.com/hitushen/localbrowser/internal/config"
	"github.com/hitushen/localbrowser/internal/discovery"
	"github.com/hitushen/localbrowser/internal/logging"
	"github.com/hitushen/localbrowser/internal/models"
	"github.com/hitushen/localbrowser/internal/scanner"
	"github.com/hitushen/localbrowser/internal/store"
	"github.com/hitushen/localbrowser/internal/targets"
)

const usage = `usage: localbrowser-client [flags] <command> [args]

commands:
  discover        find a server on the local network
  ls [path]       list a directory (default /)
  search <term>   search file and directory names
  cat <path>      print a file's content

flags:
`

type options struct {
	discoveryPort int
	httpPort      int
	timeout       time.Duration
	server        string
	verify        bool
	dbPath        string
	useLast       bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	defaultHTTPPort, _ := cfg.HTTPPort()

	var opts options
	fs := flag.NewFlagSet("localbrowser-client", flag.ExitOnError)
	fs.IntVar(&opts.discoveryPort, "port", cfg.DiscoveryPort, "UDP discovery port")
	fs.IntVar(&opts.httpPort, "http-port", defaultHTTPPort, "server HTTP port")
	fs.DurationVar(&opts.timeout, "timeout", cfg.DiscoveryTimeout, "discovery timeout")
	fs.StringVar(&opts.server, "server", "", "server address; skips discovery")
	fs.BoolVar(&opts.verify, "verify", false, "probe candidate addresses before choosing")
	fs.StringVar(&opts.dbPath, "db", "data/localbrowser-client.db", "where to remember the last server (empty disables)")
	fs.BoolVar(&opts.useLast, "last", false, "fall back to the last known server when discovery finds nothing")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if err := logging.Init(logging.Config{Level: *logLevel, Format: "console"}); err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer func() { _ = logging.Sync() }()

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, opts, args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, args []string, out io.Writer) error {
	var st *store.Store
	if opts.dbPath != "" {
		s, err := store.New(opts.dbPath)
		if err != nil {
			logging.Warn("known server store unavailable", zap.Error(err))
		} else {
			st = s
			defer st.Close()
		}
	}

	host, port, candidates, err := locate(ctx, cfg, opts, st)
	if err != nil {
		return err
	}
	base := targets.BaseURL(host, port)
	logging.Debug("using server", zap.String("base_url", base))
	client := apiclient.New(base, nil)

	switch args[0] {
	case "discover":
		fmt.Fprintln(out, base)
		for _, c := range candidates {
			if c != host {
				fmt.Fprintf(out, "  also: %s\n", c)
			}
		}
		return nil
	case "ls":
		rel := "/"
		if len(args) > 1 {
			rel = args[1]
		}
		entries, err := client.List(ctx, rel)
		if err != nil {
			return err
		}
		return printEntries(out, entries, false)
	case "search":
		if len(args) < 2 {
			return errors.New("search needs a term")
		}
		entries, err := client.Search(ctx, args[1])
		if err != nil {
			return err
		}
		return printEntries(out, entries, true)
	case "cat":
		if len(args) < 2 {
			return errors.New("cat needs a path")
		}
		data, err := client.FileContent(ctx, args[1])
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// locate 决定使用哪个服务端：显式地址优先，其次是广播发现，最后是上次保存的地址。
func locate(ctx context.Context, cfg *config.Config, opts options, st *store.Store) (string, int, []string, error) {
	if opts.server != "" {
		host, port, err := targets.Parse(opts.server, opts.httpPort)
		if err != nil {
			return "", 0, nil, err
		}
		return host, port, []string{host}, nil
	}

	dc := &discovery.Client{
		Port:    opts.discoveryPort,
		Timeout: opts.timeout,
		Chooser: promptChooser(os.Stdin, os.Stderr),
	}
	if opts.verify {
		dc.Verifier = scanner.NewProber(opts.httpPort, cfg.ScanTimeout).Reachable
	}

	sel, err := dc.Discover(ctx)
	if err != nil {
		return "", 0, nil, err
	}
	if sel != nil {
		if st != nil {
			known := models.KnownServer{Address: sel.Address, Port: opts.httpPort, Candidates: sel.Candidates}
			if err := st.SaveKnownServer(ctx, known); err != nil {
				logging.Warn("remember server", zap.Error(err))
			}
		}
		return sel.Address, opts.httpPort, sel.Candidates, nil
	}

	if opts.useLast && st != nil {
		known, err := st.LastKnownServer(ctx)
		if err == nil {
			logging.Info("discovery found nothing, using last known server",
				zap.String("address", known.Address),
				zap.Time("last_seen", known.LastSeen))
			client := apiclient.New(targets.BaseURL(known.Address, known.Port), nil)
			if err := client.Ping(ctx); err != nil {
				return "", 0, nil, fmt.Errorf("last known server %s is unreachable: %w", known.Address, err)
			}
			return known.Address, known.Port, known.Candidates, nil
		}
		if !errors.Is(err, store.ErrNoKnownServer) {
			return "", 0, nil, err
		}
	}
	return "", 0, nil, fmt.Errorf("no server answered on UDP port %d within %s", opts.discoveryPort, opts.timeout)
}

func printEntries(out io.Writer, entries []models.DirectoryEntry, showPath bool) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		kind, size := "file", "-"
		if e.IsDirectory {
			kind = "dir"
		} else if e.Size != nil {
			size = strconv.FormatInt(*e.Size, 10)
		}
		name := e.Name
		if showPath {
			name = e.Path
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", kind, size, e.Modified.Local().Format("2006-01-02 15:04"), name)
	}
	return tw.Flush()
}
