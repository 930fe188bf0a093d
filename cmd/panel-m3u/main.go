// Command panel-m3u: turn an Xtream-style panel account into an M3U playlist.
//
//	channels  Load the panel catalog and list live channels (filter by -category / -match)
//	export    Load, select live channels, fetch every series' episodes, write the playlist
//	parse     Stream the panel's bulk get.php export (or a local file) and summarize groups
//	serve     Run the HTTP API (sessions, playlist jobs, /healthz, /metrics)
//	check     Probe a panel account (-connection) or a running server (-server)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/robfig/cron/v3"

	"github.com/snapetech/panelm3u/internal/catalog"
	"github.com/snapetech/panelm3u/internal/config"
	"github.com/snapetech/panelm3u/internal/credentials"
	"github.com/snapetech/panelm3u/internal/health"
	"github.com/snapetech/panelm3u/internal/httpclient"
	"github.com/snapetech/panelm3u/internal/links"
	"github.com/snapetech/panelm3u/internal/logger"
	"github.com/snapetech/panelm3u/internal/metrics"
	"github.com/snapetech/panelm3u/internal/pipeline"
	"github.com/snapetech/panelm3u/internal/playlist"
	"github.com/snapetech/panelm3u/internal/server"
	"github.com/snapetech/panelm3u/internal/session"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <channels|export|parse|serve|check> [flags]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  channels  List live channels of a panel account\n")
	fmt.Fprintf(os.Stderr, "  export    Write a playlist: selected live channels, all movies, all episodes\n")
	fmt.Fprintf(os.Stderr, "  parse     Summarize the panel's bulk M3U export (or -file)\n")
	fmt.Fprintf(os.Stderr, "  serve     Run the HTTP API\n")
	fmt.Fprintf(os.Stderr, "  check     Probe a panel account or a running server\n")
	fmt.Fprintf(os.Stderr, "Connection and tuning also come from PANEL_M3U_* env / .env / -config YAML.\n")
}

func main() {
	_ = config.LoadEnvFile(".env")

	channelsCmd := flag.NewFlagSet("channels", flag.ExitOnError)
	channelsConfig := channelsCmd.String("config", "", "YAML config file")
	channelsConn := channelsCmd.String("connection", "", "Panel URL with username and password (default: PANEL_M3U_CONNECTION)")
	channelsMatch := channelsCmd.String("match", "", "Fuzzy filter on channel name")
	var channelsCats multiFlag
	channelsCmd.Var(&channelsCats, "category", "Only channels in this category (repeatable)")

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportConfig := exportCmd.String("config", "", "YAML config file")
	exportConn := exportCmd.String("connection", "", "Panel URL with username and password (default: PANEL_M3U_CONNECTION)")
	exportIDs := exportCmd.String("ids", "", "Comma-separated live stream ids to include")
	exportMatch := exportCmd.String("match", "", "Include live channels whose name fuzzy-matches")
	exportAll := exportCmd.Bool("all", false, "Include every live channel")
	exportInteractive := exportCmd.Bool("interactive", false, "Pick live channels from a list")
	exportFormat := exportCmd.String("format", "", "Live URL format: ts or m3u8 (default: PANEL_M3U_LIVE_FORMAT)")
	exportOut := exportCmd.String("o", "", "Output file, - for stdout (default: PANEL_M3U_OUTPUT or <host>.m3u)")
	exportCRLF := exportCmd.Bool("crlf", false, "Use CRLF line endings")
	exportLogos := exportCmd.Bool("logos", false, "Write tvg-logo attributes")
	exportCron := exportCmd.String("cron", "", "Regenerate on this cron schedule until interrupted (default: PANEL_M3U_EXPORT_CRON)")
	var exportCats multiFlag
	exportCmd.Var(&exportCats, "category", "Include every live channel in this category (repeatable)")

	parseCmd := flag.NewFlagSet("parse", flag.ExitOnError)
	parseConfig := parseCmd.String("config", "", "YAML config file")
	parseConn := parseCmd.String("connection", "", "Panel URL; its get.php export is streamed (default: PANEL_M3U_CONNECTION)")
	parseFile := parseCmd.String("file", "", "Parse a local M3U file instead of the panel export")
	parseOut := parseCmd.String("o", "", "Rewrite the parsed entries as a normalized playlist to this file")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveConfig := serveCmd.String("config", "", "YAML config file")
	serveAddr := serveCmd.String("addr", "", "Listen address (default: PANEL_M3U_LISTEN_ADDR or :8780)")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkConfig := checkCmd.String("config", "", "YAML config file")
	checkConn := checkCmd.String("connection", "", "Panel URL to probe (default: PANEL_M3U_CONNECTION)")
	checkServer := checkCmd.String("server", "", "Base URL of a running panel-m3u server to probe instead")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "channels":
		_ = channelsCmd.Parse(os.Args[2:])
		cfg := mustConfig(*channelsConfig, *channelsConn)
		err = runChannels(ctx, cfg, channelsCats, *channelsMatch)

	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		cfg := mustConfig(*exportConfig, *exportConn)
		if *exportFormat != "" {
			cfg.LiveFormat = *exportFormat
		}
		if *exportOut != "" {
			cfg.Output = *exportOut
		}
		if *exportCRLF {
			cfg.LineEnding = "crlf"
		}
		if *exportLogos {
			cfg.IncludeLogos = true
		}
		if *exportCron != "" {
			cfg.ExportCron = *exportCron
		}
		validate(cfg)
		ids, perr := parseIDs(*exportIDs)
		if perr != nil {
			err = perr
			break
		}
		sel := selector{ids: ids, categories: exportCats, match: *exportMatch, all: *exportAll}
		err = runExport(ctx, cfg, sel, *exportInteractive)

	case "parse":
		_ = parseCmd.Parse(os.Args[2:])
		cfg := mustConfig(*parseConfig, *parseConn)
		err = runParse(ctx, cfg, *parseFile, *parseOut)

	case "serve":
		_ = serveCmd.Parse(os.Args[2:])
		cfg := mustConfig(*serveConfig, "")
		if *serveAddr != "" {
			cfg.ListenAddr = *serveAddr
		}
		err = runServe(ctx, cfg)

	case "check":
		_ = checkCmd.Parse(os.Args[2:])
		cfg := mustConfig(*checkConfig, *checkConn)
		err = runCheck(ctx, cfg, *checkServer)

	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		log := logger.L()
		log.Error().Err(err).Msg(os.Args[1] + " failed")
		stop()
		os.Exit(1)
	}
}

// mustConfig loads config (file, then env), applies a -connection override and
// installs the process logger.
func mustConfig(path, conn string) *config.Config {
	cfg, err := config.LoadWithFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if conn != "" {
		cfg.Connection = conn
	}
	logger.Configure(logger.Options{Debug: cfg.Debug, SafeLogs: cfg.SafeLogs})
	validate(cfg)
	return cfg
}

func validate(cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
}

func newPipeline(cfg *config.Config, m *metrics.Metrics) *pipeline.Pipeline {
	return pipeline.New(pipeline.Options{
		Workers:         cfg.Workers,
		Budgets:         cfg.Budgets(),
		DetailRPS:       cfg.DetailRPS,
		HostConcurrency: cfg.HostConcurrency,
		UserAgent:       cfg.UserAgent,
		LiveFormat:      links.ParseFormat(cfg.LiveFormat),
		Writer:          playlist.Writer{LineEnding: cfg.LineTerminator(), IncludeLogos: cfg.IncludeLogos},
		Metrics:         m,
		Logger:          logger.L(),
	})
}

func load(ctx context.Context, p *pipeline.Pipeline, raw string) (*pipeline.Session, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: no connection (use -connection or PANEL_M3U_CONNECTION)", credentials.ErrInvalidInput)
	}
	spinner, _ := pterm.DefaultSpinner.Start("Loading panel catalog")
	s, err := p.Load(ctx, raw)
	if err != nil {
		if spinner != nil {
			spinner.Fail(err.Error())
		}
		return nil, err
	}
	live, movies, series := s.Catalog.Counts()
	if spinner != nil {
		spinner.Success(fmt.Sprintf("%s: %d live, %d movies, %d series", s.Conn.Host, live, movies, series))
	}
	printFacetWarnings(s)
	return s, nil
}

func runChannels(ctx context.Context, cfg *config.Config, categories []string, match string) error {
	s, err := load(ctx, newPipeline(cfg, nil), cfg.Connection)
	if err != nil {
		return err
	}
	channels := matchChannels(filterCategories(s.Catalog.SnapshotLive(), categories), match)
	printChannels(channels)
	pterm.Info.Printf("%d of %d channels; categories: %s\n",
		len(channels), len(s.Catalog.SnapshotLive()), strings.Join(s.Categories.Live, " | "))
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, sel selector, interactive bool) error {
	p := newPipeline(cfg, nil)
	s, err := load(ctx, p, cfg.Connection)
	if err != nil {
		return err
	}
	if interactive {
		ids, err := chooseChannels(s.Catalog.SnapshotLive())
		if err != nil {
			return fmt.Errorf("channel selection: %w", err)
		}
		sel = selector{ids: ids}
	}
	if sel.empty() {
		pterm.Warning.Println("No live channels selected; the playlist will hold movies and episodes only.")
	}
	if err := generate(ctx, p, s, sel, cfg.Output); err != nil {
		return err
	}
	if cfg.ExportCron == "" {
		return nil
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.ExportCron, func() {
		log := logger.L()
		fresh, err := p.Load(ctx, cfg.Connection)
		if err != nil {
			log.Error().Err(err).Msg("scheduled export: load")
			return
		}
		if err := generate(ctx, p, fresh, sel, cfg.Output); err != nil {
			log.Error().Err(err).Msg("scheduled export")
		}
	})
	if err != nil {
		return fmt.Errorf("cron %q: %w", cfg.ExportCron, err)
	}
	pterm.Info.Printf("Regenerating on schedule %q; Ctrl-C to stop\n", cfg.ExportCron)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func generate(ctx context.Context, p *pipeline.Pipeline, s *pipeline.Session, sel selector, out string) error {
	selection := catalog.NewSelection(s.Catalog.SnapshotLive(), sel.resolve(s.Catalog.SnapshotLive()))
	bar := &progressBar{title: "Fetching episodes"}
	res := p.Generate(ctx, s, selection, bar.update)
	bar.stop()
	if err := ctx.Err(); err != nil {
		return err
	}
	if out == "" {
		out = pipeline.FileName(s.Conn)
	}
	if out == "-" {
		_, err := os.Stdout.Write(res.Document)
		return err
	}
	if err := playlist.SaveFile(out, res.Document); err != nil {
		return err
	}
	printResult(out, res)
	return nil
}

func runParse(ctx context.Context, cfg *config.Config, file, out string) error {
	counts := map[string]*groupCount{}
	var doc playlist.Document
	add := func(e playlist.Entry) bool {
		c := counts[e.Group]
		if c == nil {
			c = &groupCount{}
			counts[e.Group] = c
		}
		if e.Kind == playlist.KindVOD {
			c.vod++
			doc.Movies = append(doc.Movies, playlist.EntryItem(e))
		} else {
			c.live++
			doc.Live = append(doc.Live, playlist.EntryItem(e))
		}
		return ctx.Err() == nil
	}

	var stats playlist.Stats
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		r := playlist.NewReader(f)
		for r.Next() {
			if !add(r.Entry()) {
				break
			}
		}
		if err := r.Err(); err != nil {
			return fmt.Errorf("parse %s: %w", file, err)
		}
		stats = r.Stats()
	} else {
		if strings.TrimSpace(cfg.Connection) == "" {
			return fmt.Errorf("%w: use -file, -connection or PANEL_M3U_CONNECTION", credentials.ErrInvalidInput)
		}
		sum, err := newPipeline(cfg, nil).StreamExport(ctx, cfg.Connection, add)
		if err != nil {
			return err
		}
		stats = sum.Stats
		if sum.Err != nil {
			pterm.Warning.Printf("export %s: %v (%d entries read before the failure)\n", sum.Status, sum.Err, stats.Entries)
		}
	}
	w := playlist.Writer{LineEnding: cfg.LineTerminator(), IncludeLogos: cfg.IncludeLogos}
	switch out {
	case "":
		printGroups(counts, stats)
		return nil
	case "-":
		_, err := w.Write(os.Stdout, doc)
		return err
	}
	printGroups(counts, stats)
	data, st := w.Render(doc)
	if err := playlist.SaveFile(out, data); err != nil {
		return err
	}
	pterm.Success.Printf("Wrote %s: %d entries, %d dropped\n", out, st.Entries(), st.Dropped)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	m := metrics.New()
	srv := server.New(server.Options{
		Addr:     cfg.ListenAddr,
		Pipeline: newPipeline(cfg, m),
		Sessions: session.NewStore(cfg.SessionTTL),
		Metrics:  m,
		Logger:   logger.L(),
		JobTTL:   cfg.SessionTTL,
	})
	return srv.Run(ctx)
}

func runCheck(ctx context.Context, cfg *config.Config, serverURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if serverURL != "" {
		if err := health.CheckServer(ctx, serverURL); err != nil {
			return err
		}
		pterm.Success.Printf("%s is healthy\n", serverURL)
		return nil
	}
	conn, err := credentials.Resolve(cfg.Connection)
	if err != nil {
		return err
	}
	a, err := health.CheckPanel(ctx, httpclient.WithTimeout(cfg.CategoryTimeout), conn)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", conn.Redacted(), a.Status, err)
	}
	if !a.Auth {
		return errors.New(conn.Redacted() + ": credentials rejected")
	}
	expires := "never"
	if !a.ExpiresAt.IsZero() {
		expires = a.ExpiresAt.Format(time.DateOnly)
	}
	pterm.Success.Printf("%s: %s, expires %s, connections %d/%d\n",
		conn.Redacted(), a.State, expires, a.ActiveConnections, a.MaxConnections)
	return nil
}
