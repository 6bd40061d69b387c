package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/coffersTech/nanotrace/internal/config"
	"github.com/coffersTech/nanotrace/internal/export"
	"github.com/coffersTech/nanotrace/internal/fetch"
	"github.com/coffersTech/nanotrace/internal/frame"
	"github.com/coffersTech/nanotrace/internal/logger"
	"github.com/coffersTech/nanotrace/internal/server"
	"github.com/coffersTech/nanotrace/internal/storage"
	"github.com/coffersTech/nanotrace/internal/trace"
)

func main() {
	os.Exit(run())
}

func run() int {
	return runWithArgs(os.Args[1:], os.Stdout, os.Stderr)
}

func runWithArgs(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nanotrace", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	keep := fs.String("keep", "", "comma-separated attributes kept as columns (overrides config)")
	sep := fs.String("sep", "", "separator between folded Details segments (overrides config)")
	format := fs.String("format", "", "trace format: auto, xml or json (overrides config)")
	jsonOut := fs.Bool("json", false, "print results as JSON")
	fs.Usage = func() { usage(fs, stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage(fs, stderr)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if *keep != "" {
		cfg.Trace.KeepColumns = splitComma(*keep)
	}
	if *sep != "" {
		cfg.Trace.DetailsSep = *sep
	}
	if *format != "" {
		cfg.Trace.Format = *format
	}

	a := &app{
		cfg:    cfg,
		stdout: stdout,
		stderr: stderr,
		json:   *jsonOut,
		log: logger.New(logger.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			File:   cfg.Log.File,
			Output: stderr,
		}),
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "roles":
		return a.cmdDistinct(cmdArgs, "roles", trace.Roles)
	case "machines":
		return a.cmdDistinct(cmdArgs, "machines", trace.Machines)
	case "columns":
		return a.cmdColumns(cmdArgs)
	case "summary":
		return a.cmdSummary(cmdArgs)
	case "events":
		return a.cmdEvents(cmdArgs)
	case "export":
		return a.cmdExport(cmdArgs)
	case "snapshot":
		return a.cmdSnapshot(cmdArgs)
	case "serve":
		return a.cmdServe(cmdArgs)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(fs, stderr)
		return 2
	}
}

func usage(fs *flag.FlagSet, stderr io.Writer) {
	fmt.Fprintln(stderr, "Usage: nanotrace [options] <command> [command options] <trace file | url>")
	fmt.Fprintln(stderr)
	fmt.Fprintln(stderr, "Commands:")
	fmt.Fprintln(stderr, "  roles      list the distinct roles (As attribute) in the trace")
	fmt.Fprintln(stderr, "  machines   list the distinct machines in the trace")
	fmt.Fprintln(stderr, "  columns    list the trace table columns")
	fmt.Fprintln(stderr, "  summary    print event counts, roles, machines and the time span")
	fmt.Fprintln(stderr, "  events     print events, optionally filtered")
	fmt.Fprintln(stderr, "  export     write the trace table to a SQLite or CSV file")
	fmt.Fprintln(stderr, "  snapshot   write the trace table to a compressed .ntab file")
	fmt.Fprintln(stderr, "  serve      serve the trace over a read-only JSON API")
	fmt.Fprintln(stderr)
	fmt.Fprintln(stderr, "Trace files may be XML or JSON-lines, optionally gzipped, local or http(s).")
	fmt.Fprintln(stderr, "A .ntab snapshot can be used anywhere a trace file can.")
	fmt.Fprintln(stderr)
	fmt.Fprintln(stderr, "Options:")
	fs.PrintDefaults()
}

type app struct {
	cfg    *config.Config
	log    *logger.Logger
	stdout io.Writer
	stderr io.Writer
	json   bool
}

func (a *app) fail(err error) int {
	fmt.Fprintf(a.stderr, "error: %v\n", err)
	return 1
}

// load reads a trace table from a local file, a URL, or a .ntab
// snapshot.
func (a *app) load(source string) (*frame.Frame, error) {
	if fetch.IsURL(source) {
		dir, err := os.MkdirTemp("", "nanotrace-*")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(dir)

		client := fetch.New(fetch.Config{
			Timeout:    a.cfg.FetchTimeout(),
			RetryCount: a.cfg.Fetch.RetryCount,
		})
		local, err := client.Download(context.Background(), source, dir)
		if err != nil {
			return nil, err
		}
		a.log.WithField("url", source).Info("trace downloaded")
		source = local
	}

	if strings.HasSuffix(source, ".ntab") {
		reader, err := storage.NewColumnReader()
		if err != nil {
			return nil, err
		}
		return reader.ReadSnapshot(source)
	}

	opts, err := a.cfg.TraceOptions()
	if err != nil {
		return nil, err
	}
	return trace.LoadFileOptions(source, opts)
}

func oneSource(fs *flag.FlagSet, stderr io.Writer) (string, bool) {
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "error: exactly one trace file argument is required")
		return "", false
	}
	return fs.Arg(0), true
}

// cmdDistinct implements the roles and machines commands, which differ
// only in the projected column.
func (a *app) cmdDistinct(args []string, name string, project func(*frame.Frame) ([]string, error)) int {
	fs := flag.NewFlagSet("nanotrace "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	source, ok := oneSource(fs, a.stderr)
	if !ok {
		return 2
	}

	f, err := a.load(source)
	if err != nil {
		return a.fail(err)
	}
	vals, err := project(f)
	if err != nil {
		return a.fail(err)
	}

	return a.printList(vals)
}

func (a *app) cmdColumns(args []string) int {
	fs := flag.NewFlagSet("nanotrace columns", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	source, ok := oneSource(fs, a.stderr)
	if !ok {
		return 2
	}

	f, err := a.load(source)
	if err != nil {
		return a.fail(err)
	}

	return a.printList(f.Columns())
}

func (a *app) printList(vals []string) int {
	if a.json {
		return a.printJSON(vals)
	}
	for _, v := range vals {
		fmt.Fprintln(a.stdout, v)
	}
	return 0
}

func (a *app) printJSON(v interface{}) int {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return a.fail(err)
	}
	return 0
}

func (a *app) cmdSummary(args []string) int {
	fs := flag.NewFlagSet("nanotrace summary", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	source, ok := oneSource(fs, a.stderr)
	if !ok {
		return 2
	}

	f, err := a.load(source)
	if err != nil {
		return a.fail(err)
	}
	s := trace.Summarize(f)

	if a.json {
		return a.printJSON(s)
	}

	fmt.Fprintf(a.stdout, "Events:    %d\n", s.Events)
	fmt.Fprintf(a.stdout, "Columns:   %d\n", s.Columns)
	if s.MinTime != 0 || s.MaxTime != 0 {
		fmt.Fprintf(a.stdout, "Time span: %s - %s\n",
			strconv.FormatFloat(s.MinTime, 'f', -1, 64),
			strconv.FormatFloat(s.MaxTime, 'f', -1, 64))
	}
	if len(s.SeverityCounts) > 0 {
		fmt.Fprintf(a.stdout, "Severity:  %s\n", formatCounts(s.SeverityCounts))
	}
	if len(s.Roles) > 0 {
		fmt.Fprintf(a.stdout, "Roles:     %s\n", strings.Join(s.Roles, ", "))
	}
	if len(s.Machines) > 0 {
		fmt.Fprintf(a.stdout, "Machines:  %s\n", strings.Join(s.Machines, ", "))
	}
	return 0
}

func (a *app) cmdEvents(args []string) int {
	fs := flag.NewFlagSet("nanotrace events", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var flt trace.Filter
	fs.StringVar(&flt.Type, "type", "", "filter: exact event Type")
	fs.StringVar(&flt.Severity, "severity", "", "filter: exact Severity")
	fs.StringVar(&flt.Role, "role", "", "filter: exact role (As attribute)")
	fs.StringVar(&flt.Machine, "machine", "", "filter: exact Machine")
	fs.StringVar(&flt.Contains, "q", "", "filter: substring of Details")
	limit := fs.Int("limit", 0, "max events to print (0 = all)")
	offset := fs.Int("offset", 0, "events to skip")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	source, ok := oneSource(fs, a.stderr)
	if !ok {
		return 2
	}

	f, err := a.load(source)
	if err != nil {
		return a.fail(err)
	}
	rows := trace.Select(f, flt, *offset, *limit)

	if a.json {
		events := make([]map[string]string, len(rows))
		for i, rec := range rows {
			ev := make(map[string]string, len(rec))
			for _, fd := range rec {
				ev[fd.Key] = fd.Value
			}
			events[i] = ev
		}
		return a.printJSON(events)
	}

	for _, rec := range rows {
		parts := make([]string, len(rec))
		for i, fd := range rec {
			parts[i] = fd.Key + "=" + maybeQuote(fd.Value)
		}
		fmt.Fprintln(a.stdout, strings.Join(parts, " "))
	}
	return 0
}

func (a *app) cmdExport(args []string) int {
	fs := flag.NewFlagSet("nanotrace export", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	out := fs.String("o", "", "output file; .csv writes CSV, anything else SQLite")
	table := fs.String("table", "", "SQLite table name (default from config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *out == "" {
		fmt.Fprintln(a.stderr, "error: -o is required")
		return 2
	}
	source, ok := oneSource(fs, a.stderr)
	if !ok {
		return 2
	}

	f, err := a.load(source)
	if err != nil {
		return a.fail(err)
	}

	if strings.HasSuffix(*out, ".csv") {
		if err := export.ToCSV(*out, f); err != nil {
			return a.fail(err)
		}
	} else {
		name := *table
		if name == "" {
			name = a.cfg.Export.Table
		}
		if err := export.ToSQLite(*out, name, f); err != nil {
			return a.fail(err)
		}
	}

	fmt.Fprintf(a.stdout, "exported %d events to %s\n", f.Len(), *out)
	return 0
}

func (a *app) cmdSnapshot(args []string) int {
	fs := flag.NewFlagSet("nanotrace snapshot", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	out := fs.String("o", "", "output .ntab file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *out == "" {
		fmt.Fprintln(a.stderr, "error: -o is required")
		return 2
	}
	source, ok := oneSource(fs, a.stderr)
	if !ok {
		return 2
	}

	f, err := a.load(source)
	if err != nil {
		return a.fail(err)
	}
	writer, err := storage.NewColumnWriter()
	if err != nil {
		return a.fail(err)
	}
	if err := writer.WriteSnapshot(*out, f); err != nil {
		return a.fail(err)
	}

	fmt.Fprintf(a.stdout, "snapshot of %d events written to %s\n", f.Len(), *out)
	return 0
}

func (a *app) cmdServe(args []string) int {
	fs := flag.NewFlagSet("nanotrace serve", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	addr := fs.String("addr", "", "listen address (default from config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	source, ok := oneSource(fs, a.stderr)
	if !ok {
		return 2
	}

	f, err := a.load(source)
	if err != nil {
		return a.fail(err)
	}
	if *addr == "" {
		*addr = a.cfg.Server.Addr
	}

	srv := server.NewViewerServer(f, source, a.log)

	go func() {
		a.log.WithField("addr", *addr).Infof("NanoTrace viewer started, serving %d events", f.Len())
		if err := srv.Start(*addr); err != nil {
			a.log.WithError(err).Error("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	a.log.Infof("received signal %v, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.log.WithError(err).Error("server shutdown error")
		return 1
	}

	a.log.Info("NanoTrace exited gracefully")
	return 0
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// formatCounts renders a tally as "key=count" pairs, keys sorted so the
// output is stable.
func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

func maybeQuote(v string) string {
	if strings.ContainsAny(v, " \t\n\"") {
		return strconv.Quote(v)
	}
	return v
}
