// stock-reconciler compares each event's stock counter with its quota minus
// the tickets actually stored and rewrites the counter when they disagree.
// Units stranded by an issuance that gave up after reserving are recovered here.
//
// A unit reserved by an issuance still in flight looks the same as a leaked one,
// so a drift is only rewritten when it reads the same twice, --settle apart, and
// stock has not moved when the write lands. --settle must exceed the longest
// issuance the service can run; the reconciler is safe against a live service
// only under that condition.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"event-ticketing/internal/config"
	"event-ticketing/internal/database"
	eventsdb "event-ticketing/internal/events/db"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/stock"
	ticketsdb "event-ticketing/internal/tickets/db"
	"event-ticketing/internal/utils"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type options struct {
	EventID string
	All     bool
	DryRun  bool
	JSON    bool
	Settle  time.Duration
}

type reconciler interface {
	Reconcile(ctx context.Context, eventID string, dryRun bool) (*stock.Report, error)
	ReconcileAll(ctx context.Context, dryRun bool) ([]stock.Report, error)
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, out io.Writer) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("stock-reconciler", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVar(&opts.EventID, "event-id", "", "reconcile a single event")
	flagSet.BoolVar(&opts.All, "all", false, "reconcile every event")
	flagSet.BoolVar(&opts.DryRun, "dry-run", false, "report drift without rewriting stock")
	flagSet.BoolVar(&opts.JSON, "json", false, "print reports as JSON")
	flagSet.DurationVar(&opts.Settle, "settle", stock.DefaultSettle, "how long a drift must hold before it is rewritten; longer than any issuance")

	if err := flagSet.Parse(args); err != nil {
		return opts, err
	}
	if (opts.EventID == "") == !opts.All {
		return opts, errors.New("exactly one of --event-id or --all is required")
	}
	if opts.Settle < 0 {
		return opts, errors.New("--settle must not be negative")
	}
	if opts.EventID != "" {
		if err := utils.ValidateID(opts.EventID); err != nil {
			return opts, fmt.Errorf("--event-id: %w", err)
		}
	}
	return opts, nil
}

func run(args []string, out io.Writer) error {
	opts, err := parseFlags(args, out)
	if err != nil {
		return err
	}

	_ = godotenv.Load()
	cfg := config.Load()
	log, err := logger.NewLogger("", "stock-reconciler")
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	if err := database.Prepare(ctx, bunDB, cfg.Database.Driver, log); err != nil {
		return err
	}

	r := stock.NewReconciler(&eventsdb.DB{Bun: bunDB}, &ticketsdb.DB{Bun: bunDB}, opts.Settle, log)
	return reconcile(ctx, r, opts, out)
}

func reconcile(ctx context.Context, r reconciler, opts options, out io.Writer) error {
	var reports []stock.Report
	if opts.All {
		all, err := r.ReconcileAll(ctx, opts.DryRun)
		if err != nil {
			return err
		}
		reports = all
	} else {
		report, err := r.Reconcile(ctx, opts.EventID, opts.DryRun)
		if err != nil {
			return err
		}
		reports = []stock.Report{*report}
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tQUOTA\tSTOCK\tSOLD\tDRIFT\tFIXED\tSKIPPED")
	for _, rep := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%t\t%s\n", rep.EventID, rep.Quota, rep.Stock, rep.Sold, rep.Drift, rep.Fixed, rep.Skipped)
	}
	return tw.Flush()
}
