package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/scrap-tracker/internal/app"
	"github.com/dvloznov/scrap-tracker/internal/config"
	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/gcsuploader"
	"github.com/dvloznov/scrap-tracker/internal/logger"
	"github.com/dvloznov/scrap-tracker/internal/records"
	"github.com/dvloznov/scrap-tracker/internal/report"
	"github.com/dvloznov/scrap-tracker/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var run func(cfg config.Config, log zerolog.Logger, args []string) error
	switch os.Args[1] {
	case "add":
		run = runAdd
	case "list":
		run = runList
	case "show":
		run = runShow
	case "delete":
		run = runDelete
	case "dashboard":
		run = runDashboard
	case "daily":
		run = runDaily
	case "export":
		run = runExport
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	log := logger.NewWithLevel(cfg.LogLevel)
	if err := run(cfg, log, os.Args[2:]); err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("Command failed")
	}
}

func printUsage() {
	fmt.Println("Scrap Tracker CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  add        Record a purchase")
	fmt.Println("  list       List records with optional filters and sorting")
	fmt.Println("  show       Show a single record by ID")
	fmt.Println("  delete     Delete a record by ID")
	fmt.Println("  dashboard  Show totals per item and supplier")
	fmt.Println("  daily      Show the records of one day")
	fmt.Println("  export     Write the record view as CSV or XLSX")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// open parses fs (which already holds the command's own flags) together with
// the shared config flags and opens the store.
func open(cfg *config.Config, log *zerolog.Logger, fs *flag.FlagSet, args []string) (context.Context, *app.App, error) {
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	*log = log.Level(logger.ParseLevel(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	ctx := logger.WithContext(context.Background(), *log)
	a, err := app.Open(ctx, *cfg, *log)
	if err != nil {
		return nil, nil, err
	}
	return ctx, a, nil
}

// warnFallback prints the remote fallback notice and swallows the error.
func warnFallback(err error) error {
	if store.IsRemoteFallback(err) {
		fmt.Fprintf(os.Stderr, "warning: %v (using local data)\n", err)
		return nil
	}
	return err
}

func filterFlags(fs *flag.FlagSet) (*domain.Filters, *string) {
	f := &domain.Filters{}
	fs.StringVar(&f.ItemName, "item", "", "filter by item name")
	fs.StringVar(&f.SupplierName, "supplier", "", "filter by supplier name")
	fs.StringVar(&f.StartDate, "from", "", "first transaction date (YYYY-MM-DD)")
	fs.StringVar(&f.EndDate, "to", "", "last transaction date (YYYY-MM-DD)")
	sort := fs.String("sort", string(domain.SortDateDesc), "date-desc, date-asc, amount-desc or amount-asc")
	return f, sort
}

// floatFlag records whether a numeric flag was supplied at all.
type floatFlag struct {
	v *float64
}

func (f *floatFlag) String() string {
	if f.v == nil {
		return ""
	}
	return strconv.FormatFloat(*f.v, 'f', -1, 64)
}

func (f *floatFlag) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	f.v = &v
	return nil
}

func runAdd(cfg config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	var (
		in                    records.Input
		weight, price, amount floatFlag
	)
	fs.StringVar(&in.ItemName, "item", "", "item name (Iron, Copper, Pot, ...)")
	fs.Var(&weight, "weight", "weight in kg")
	fs.Var(&price, "price", "price per kg (not for Pot)")
	fs.Var(&amount, "amount", "total amount (Pot only)")
	fs.StringVar(&in.SupplierName, "supplier", "", "supplier name")
	fs.StringVar(&in.TransactionDate, "date", "", "transaction date (YYYY-MM-DD, default today)")

	ctx, a, err := open(&cfg, &log, fs, args)
	if err != nil {
		return err
	}
	defer a.Close()

	in.Weight, in.PricePerKg, in.Amount = weight.v, price.v, amount.v

	rec, err := a.Store.Create(ctx, in)
	var ve *records.ValidationError
	if errors.As(err, &ve) {
		for field, msg := range ve.Fields {
			fmt.Fprintf(os.Stderr, "  %s %s\n", field, msg)
		}
		return err
	}
	if err := warnFallback(err); err != nil {
		return err
	}

	fmt.Printf("Saved %s: %s %s kg from %s, total %s\n",
		rec.ID, rec.ItemName, records.FormatNumber(rec.Weight), rec.SupplierName, records.FormatCurrency(rec.TotalAmount))
	return nil
}

func runList(cfg config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	filters, sort := filterFlags(fs)

	ctx, a, err := open(&cfg, &log, fs, args)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Store.List(ctx, *filters)
	if err := warnFallback(err); err != nil {
		return err
	}

	view := records.BuildView(res.Records, *filters, domain.ParseSortKey(*sort))
	printRecords(os.Stdout, view)
	fmt.Printf("\n%d record(s) from %s data\n", len(view), res.Source)
	return nil
}

func runShow(cfg config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	id := fs.String("id", "", "record ID")

	ctx, a, err := open(&cfg, &log, fs, args)
	if err != nil {
		return err
	}
	defer a.Close()

	if *id == "" {
		return errors.New("-id is required")
	}

	rec, err := a.Store.Get(ctx, *id)
	if err := warnFallback(err); err != nil {
		return err
	}

	fmt.Println("\n=== Record ===")
	fmt.Printf("ID:         %s\n", rec.ID)
	fmt.Printf("Date:       %s\n", records.ResolveDateOnly(rec))
	fmt.Printf("Item:       %s\n", rec.ItemName)
	fmt.Printf("Weight:     %s kg\n", records.FormatNumber(rec.Weight))
	if rec.IsPot() {
		fmt.Printf("Amount:     %s\n", records.FormatCurrency(rec.Amount))
	} else {
		fmt.Printf("Price/kg:   %s\n", records.FormatCurrency(rec.PricePerKg))
	}
	fmt.Printf("Total:      %s\n", records.FormatCurrency(rec.TotalAmount))
	fmt.Printf("Supplier:   %s\n", rec.SupplierName)
	if rec.CreatedAt != "" {
		fmt.Printf("Created:    %s\n", rec.CreatedAt)
	}
	fmt.Println()
	return nil
}

func runDelete(cfg config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "record ID")

	ctx, a, err := open(&cfg, &log, fs, args)
	if err != nil {
		return err
	}
	defer a.Close()

	if *id == "" {
		return errors.New("-id is required")
	}

	if err := warnFallback(a.Store.DeleteByID(ctx, *id)); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", *id)
	return nil
}

func runDashboard(cfg config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	filters, _ := filterFlags(fs)

	ctx, a, err := open(&cfg, &log, fs, args)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Store.List(ctx, *filters)
	if err := warnFallback(err); err != nil {
		return err
	}

	s := records.Aggregate(records.Filter(res.Records, *filters))

	fmt.Println("\n=== Totals ===")
	fmt.Printf("Records:  %d\n", s.Count)
	fmt.Printf("Weight:   %s kg\n", records.FormatNumber(s.TotalWeight))
	fmt.Printf("Amount:   %s\n", records.FormatCurrency(s.TotalAmount))

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nITEM\tRECORDS\tWEIGHT (KG)\tAMOUNT")
	for _, it := range s.ItemStats {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", it.ItemName, it.Count, records.FormatNumber(it.TotalWeight), records.FormatCurrency(it.TotalAmount))
	}
	fmt.Fprintln(tw, "\nSUPPLIER\tRECORDS\t\tAMOUNT")
	for _, sp := range s.SuppliersByAmount() {
		fmt.Fprintf(tw, "%s\t%d\t\t%s\n", sp.SupplierName, sp.Count, records.FormatCurrency(sp.TotalAmount))
	}
	tw.Flush()

	fmt.Println("\n=== Recent ===")
	printRecords(os.Stdout, s.RecentTransactions)
	fmt.Println()
	return nil
}

func runDaily(cfg config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("daily", flag.ExitOnError)
	day := fs.String("date", time.Now().Format(domain.DateLayout), "day to show (YYYY-MM-DD)")

	ctx, a, err := open(&cfg, &log, fs, args)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := time.Parse(domain.DateLayout, *day); err != nil {
		return fmt.Errorf("invalid -date %q: %w", *day, err)
	}

	res, err := a.Store.List(ctx, domain.Filters{StartDate: *day, EndDate: *day})
	if err := warnFallback(err); err != nil {
		return err
	}

	ds := records.DailySummary(res.Records, *day)
	fmt.Printf("\n=== %s ===\n", ds.Date)
	printRecords(os.Stdout, ds.Records)
	fmt.Printf("\n%d record(s), total %s\n", ds.Count, records.FormatCurrency(ds.TotalAmount))
	return nil
}

func runExport(cfg config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	filters, sort := filterFlags(fs)
	format := fs.String("format", string(report.FormatCSV), "csv or xlsx")
	out := fs.String("out", "", "output file (default: generated name in the current directory)")
	upload := fs.Bool("upload", false, "upload to the export bucket instead of writing a file")

	ctx, a, err := open(&cfg, &log, fs, args)
	if err != nil {
		return err
	}
	defer a.Close()

	f := report.ParseFormat(*format)
	if string(f) != *format {
		return fmt.Errorf("unsupported format %q", *format)
	}

	res, err := a.Store.List(ctx, *filters)
	if err := warnFallback(err); err != nil {
		return err
	}
	view := records.BuildView(res.Records, *filters, domain.ParseSortKey(*sort))

	var buf bytes.Buffer
	if err := report.Render(&buf, f, view); err != nil {
		return err
	}

	name := report.Filename(f, time.Now().UTC())
	if *upload {
		if cfg.ExportBucket == "" {
			return errors.New("-upload requires -bucket or EXPORT_BUCKET")
		}
		uri, err := gcsuploader.UploadBytes(ctx, cfg.ExportBucket, filepath.ToSlash(filepath.Join("exports", name)), f.ContentType(), buf.Bytes())
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d record(s) to %s\n", len(view), uri)
		return nil
	}

	if *out == "" {
		*out = name
	}
	if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	fmt.Printf("Exported %d record(s) to %s\n", len(view), *out)
	return nil
}

func printRecords(w io.Writer, recs []domain.Record) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tITEM\tWEIGHT (KG)\tPRICE/KG\tTOTAL\tSUPPLIER\tID")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			records.ResolveDateOnly(r),
			r.ItemName,
			records.FormatNumber(r.Weight),
			records.FormatNumber(r.PricePerKg),
			records.FormatCurrency(r.TotalAmount),
			r.SupplierName,
			r.ID,
		)
	}
	tw.Flush()
}
