// FILE: src/cmd/chronicle/main.go
package main

import (
	"fmt"
	"os"

	"chronicle/src/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "cat":
		err = runCat(os.Args[2:])
	case "collect":
		err = runCollect(os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	case "version", "-version", "--version":
		fmt.Println(version.String())
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Chronicle - Structured Recording Toolkit\n\n")
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  cat <file.chron>\n\tDecode a recording file to stdout\n")
	fmt.Fprintf(os.Stderr, "  collect\n\tRun a collector server receiving forwarded records\n")
	fmt.Fprintf(os.Stderr, "  token\n\tGenerate viewer access credentials\n")
	fmt.Fprintf(os.Stderr, "  version\n\tShow version information\n")

	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  # Decode a recording, pretty-printed on a terminal\n")
	fmt.Fprintf(os.Stderr, "  %s cat run.chron\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "  # Decode to NDJSON regardless of terminal\n")
	fmt.Fprintf(os.Stderr, "  %s cat --json run.chron\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "  # Run a collector persisting to a recording file\n")
	fmt.Fprintf(os.Stderr, "  %s collect --collector.port 9877 --collector.save_path all.chron\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "Environment Variables:\n")
	fmt.Fprintf(os.Stderr, "  CHRONICLE_CONFIG_FILE  Config file path\n")
	fmt.Fprintf(os.Stderr, "  CHRONICLE_CONFIG_DIR   Config directory\n")
}
