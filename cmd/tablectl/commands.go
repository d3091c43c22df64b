package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/JonMunkholm/tablebrowser/internal/core"
)

// viewState tracks the one operation a terminal session runs at a time.
type viewState struct {
	out       io.Writer
	lastQuery string
	lastError error
	isBusy    bool
	started   time.Time
}

func (v *viewState) begin(query string) {
	v.lastQuery = query
	v.lastError = nil
	v.isBusy = true
	v.started = time.Now()
	color.New(color.FgCyan).Fprintf(v.out, "%s ...\n", query)
}

func (v *viewState) done(format string, args ...any) {
	v.isBusy = false
	msg := fmt.Sprintf(format, args...)
	color.New(color.FgGreen).Fprintf(v.out, "%s (%s)\n", msg, time.Since(v.started).Round(time.Millisecond))
}

func (v *viewState) fail(err error) {
	v.isBusy = false
	v.lastError = err
	msg := core.MapError(err)
	red := color.New(color.FgRed)
	if detail := core.EngineMessage(err); detail != "" {
		red.Fprintln(v.out, detail)
	}
	red.Fprintf(v.out, "%s (Code: %s)\n", msg.Message, msg.Code)
	if msg.Action != "" {
		color.New(color.FgYellow).Fprintln(v.out, msg.Action)
	}
}

// invocation is a parsed subcommand ready to run.
type invocation struct {
	run func(ctx context.Context, svc *core.Service, state *viewState, stdout io.Writer) error
}

type command struct {
	parse func(args []string, stderr io.Writer) (*invocation, error)
}

var commands = map[string]command{
	"tables": {parse: parseTables},
	"page":   {parse: parsePage},
	"stats":  {parse: parseStats},
	"export": {parse: parseExport},
	"drop":   {parse: parseDrop},
}

// parseTable splits "database.table" at the first dot.
func parseTable(arg string) (core.TableIdentity, error) {
	db, table, ok := strings.Cut(arg, ".")
	id := core.TableIdentity{Database: db, Table: table}
	if !ok {
		return id, fmt.Errorf("table %q must be written as database.table", arg)
	}
	return id, id.Validate()
}

// tableArg parses the flags and the single positional table argument.
func tableArg(fs *flag.FlagSet, args []string) (core.TableIdentity, error) {
	if err := fs.Parse(args); err != nil {
		return core.TableIdentity{}, err
	}
	if fs.NArg() != 1 {
		return core.TableIdentity{}, errors.New("expected exactly one <database>.<table> argument")
	}
	return parseTable(fs.Arg(0))
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parseTables(args []string, stderr io.Writer) (*invocation, error) {
	fs := newFlagSet("tables", stderr)
	system := fs.Bool("system", false, "include system databases")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &invocation{run: func(ctx context.Context, svc *core.Service, state *viewState, stdout io.Writer) error {
		state.begin("list tables")
		tables, err := svc.ListTables(ctx, *system)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATABASE\tTABLE\tENGINE\tROWS\tBYTES")
		for _, t := range tables {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", t.Database, t.Name, t.Engine, t.TotalRows, t.TotalBytes)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		state.done("%d tables", len(tables))
		return nil
	}}, nil
}

func parsePage(args []string, stderr io.Writer) (*invocation, error) {
	fs := newFlagSet("page", stderr)
	limit := fs.Int("limit", 0, "rows to read (0 = configured default)")
	id, err := tableArg(fs, args)
	if err != nil {
		return nil, err
	}

	return &invocation{run: func(ctx context.Context, svc *core.Service, state *viewState, stdout io.Writer) error {
		n, err := svc.PageLimit(*limit)
		if err != nil {
			return err
		}
		state.begin(fmt.Sprintf("read %s limit %d", id, n))
		page, err := svc.LoadPage(ctx, id, n)
		if err != nil {
			return err
		}
		if err := writePage(stdout, page); err != nil {
			return err
		}
		state.done("%d rows", page.RowCount)
		return nil
	}}, nil
}

func writePage(w io.Writer, page *core.QueryResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(page.ColumnNames(), "\t"))
	for _, row := range page.Rows {
		cells := make([]string, len(row))
		for i, f := range row {
			if f.Value == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprint(f.Value)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func parseStats(args []string, stderr io.Writer) (*invocation, error) {
	id, err := tableArg(newFlagSet("stats", stderr), args)
	if err != nil {
		return nil, err
	}

	return &invocation{run: func(ctx context.Context, svc *core.Service, state *viewState, stdout io.Writer) error {
		state.begin("stats " + id.String())
		st, err := svc.LoadStats(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "rows:          %d\n", st.TotalRows)
		fmt.Fprintf(stdout, "parts:         %d\n", st.PartCount)
		fmt.Fprintf(stdout, "bytes:         %d\n", st.TotalBytes)
		fmt.Fprintf(stdout, "compressed:    %s\n", st.CompressedSize)
		fmt.Fprintf(stdout, "uncompressed:  %s\n", st.UncompressedSize)
		state.done("stats loaded")
		return nil
	}}, nil
}

func parseExport(args []string, stderr io.Writer) (*invocation, error) {
	fs := newFlagSet("export", stderr)
	limit := fs.Int("limit", 0, "row cap (0 = configured default)")
	compress := fs.Bool("lz4", false, "compress the CSV with lz4 frames")
	output := fs.String("o", "", `output file ("-" for stdout, default derived from the table name)`)
	id, err := tableArg(fs, args)
	if err != nil {
		return nil, err
	}

	return &invocation{run: func(ctx context.Context, svc *core.Service, state *viewState, stdout io.Writer) error {
		path := *output
		if path == "" {
			path = svc.ExportFilename(id, *compress)
		}

		var w io.Writer = stdout
		if path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		state.begin("export " + id.String() + " -> " + path)
		result, err := svc.ExportTable(ctx, id, *limit, w, core.ExportOptions{Compress: *compress})
		if err != nil {
			return err
		}
		suffix := ""
		if result.Truncated() {
			suffix = " (row cap " + strconv.Itoa(result.Cap) + " reached)"
		}
		state.done("%d rows, %d bytes%s", result.Rows, result.Bytes, suffix)
		return nil
	}}, nil
}

func parseDrop(args []string, stderr io.Writer) (*invocation, error) {
	fs := newFlagSet("drop", stderr)
	confirm := fs.String("confirm", "", "table name typed back to confirm the drop")
	id, err := tableArg(fs, args)
	if err != nil {
		return nil, err
	}
	if err := core.CheckDropConfirmation(id, *confirm); err != nil {
		return nil, err
	}

	return &invocation{run: func(ctx context.Context, svc *core.Service, state *viewState, stdout io.Writer) error {
		state.begin("drop " + id.String())
		outcome, err := svc.DropTable(ctx, id)
		if err != nil {
			return err
		}
		state.done("dropped %s [%s]", id, outcome.OperationID)
		return nil
	}}, nil
}
