package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Cargo-style status output: a bold green right-aligned tag followed by the
// message, warnings in bold yellow, fatal errors as a causal chain.

var (
	progressTag = color.New(color.FgGreen, color.Bold)
	warningTag  = color.New(color.FgYellow, color.Bold)
	errorTag    = color.New(color.FgHiRed, color.Bold)
	causeTag    = color.New(color.FgRed, color.Bold)
)

func progressf(tag, format string, args ...any) {
	if quietMode() {
		return
	}
	progressTag.Fprintf(os.Stderr, "%12s ", tag)
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func warnf(format string, args ...any) {
	warningTag.Fprint(os.Stderr, "warning: ")
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func printErrorChain(err error) {
	first := true
	for err != nil {
		msg := err.Error()
		if next := errors.Unwrap(err); next != nil {
			// Show only the context this layer added; the cause prints on
			// its own line below.
			if cut := len(msg) - len(next.Error()); cut > 2 && msg[cut-2:cut] == ": " && msg[cut:] == next.Error() {
				msg = msg[:cut-2]
			}
			err = next
		} else {
			err = nil
		}
		if first {
			errorTag.Fprint(os.Stderr, "error: ")
			first = false
		} else {
			causeTag.Fprint(os.Stderr, "caused by: ")
		}
		fmt.Fprintln(os.Stderr, msg)
	}
}

func quietMode() bool {
	quiet, err := rootCmd.PersistentFlags().GetBool("quiet")
	return err == nil && quiet
}
