// Command sendlog is the maintenance tool for the sent-log. The serving
// path only ever appends; counting, exporting, and pruning old records
// happen here.
//
// Usage:
//
//	sendlog [-backend csv|sqlite] [-path FILE] count [-day YYYY-MM-DD]
//	sendlog [-backend csv|sqlite] [-path FILE] export
//	sendlog [-backend csv|sqlite] [-path FILE] prune -before YYYY-MM-DD
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/resumeblast/internal/model"
	"github.com/resumeblast/internal/sentlog"
)

func main() {
	backend := flag.String("backend", envOr("SENT_LOG_BACKEND", "csv"), "sent-log backend (csv, sqlite)")
	path := flag.String("path", envOr("SENT_LOG_PATH", "sent_emails.csv"), "sent-log file path")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: sendlog [flags] count|export|prune [args]")
		os.Exit(2)
	}

	store, err := sentlog.Open(*backend, *path)
	if err != nil {
		slog.Error("open sent-log", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	switch cmd {
	case "count":
		err = runCount(ctx, store, args)
	case "export":
		err = runExport(ctx, store)
	case "prune":
		err = runPrune(ctx, store, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		slog.Error(cmd+" failed", "err", err)
		os.Exit(1)
	}
}

func runCount(ctx context.Context, store sentlog.Store, args []string) error {
	fs := flag.NewFlagSet("count", flag.ExitOnError)
	day := fs.String("day", model.Day(time.Now()), "calendar date to count (YYYY-MM-DD)")
	fs.Parse(args)

	d, err := time.Parse(model.DayFormat, *day)
	if err != nil {
		return fmt.Errorf("invalid -day: %w", err)
	}
	n, err := store.CountOn(ctx, d)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d sent\n", *day, n)
	return nil
}

type exportRow struct {
	Email    string `csv:"email"`
	Company  string `csv:"company"`
	DateSent string `csv:"date_sent"`
}

func runExport(ctx context.Context, store sentlog.Store) error {
	records, err := store.All(ctx)
	if err != nil {
		return err
	}
	rows := make([]*exportRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, &exportRow{
			Email:    rec.Email,
			Company:  rec.Company,
			DateSent: model.Day(rec.DateSent),
		})
	}
	return gocsv.Marshal(&rows, os.Stdout)
}

func runPrune(ctx context.Context, store sentlog.Store, args []string) error {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	before := fs.String("before", "", "remove records older than this date (YYYY-MM-DD)")
	fs.Parse(args)

	if *before == "" {
		return fmt.Errorf("-before is required")
	}
	cutoff, err := time.Parse(model.DayFormat, *before)
	if err != nil {
		return fmt.Errorf("invalid -before: %w", err)
	}
	n, err := store.Prune(ctx, cutoff)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d records before %s\n", n, *before)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
