// FILE: src/cmd/chronicle/cat.go
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"chronicle/src/internal/chronfile"
	"chronicle/src/internal/config"
	"chronicle/src/internal/format"

	"golang.org/x/term"
)

// runCat decodes a recording file to stdout. Text rendering is the
// default on a terminal, NDJSON when piped or forced with --json.
func runCat(args []string) error {
	fs := flag.NewFlagSet("cat", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Output NDJSON instead of text")
	showStats := fs.Bool("stats", false, "Print recording summary to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: cat [--json] [--stats] <file.chron>")
	}
	path := fs.Arg(0)

	r, err := chronfile.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}

	name := "text"
	if *asJSON || !term.IsTerminal(int(os.Stdout.Fd())) {
		name = "json"
	}

	formatter, err := format.New(name, nil, config.NewSilentLogger())
	if err != nil {
		return err
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	for _, rec := range r.Records() {
		line, err := formatter.Format(rec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping record: %v\n", err)
			continue
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
	}

	if *showStats {
		minTs, maxTs := r.TimeRange()
		fmt.Fprintf(os.Stderr, "application: %s\nrecords: %d\n",
			r.ApplicationID(), len(r.Records()))
		if len(r.Records()) > 0 {
			fmt.Fprintf(os.Stderr, "time range: %s .. %s\n",
				minTs.Format("2006-01-02 15:04:05.000"),
				maxTs.Format("2006-01-02 15:04:05.000"))
		}
	}

	return nil
}
