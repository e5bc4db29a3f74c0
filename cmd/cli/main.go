package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"market-reconcile/internal/align"
	"market-reconcile/internal/analysis"
	"market-reconcile/internal/config"
	"market-reconcile/internal/data"
	"market-reconcile/internal/earnings"
	"market-reconcile/internal/ingest"
	"market-reconcile/internal/model"
	"market-reconcile/internal/report"
	"market-reconcile/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "download":
		err = cmdDownload(ctx, os.Args[2:])
	case "build":
		err = cmdBuild(ctx, os.Args[2:])
	case "years":
		err = cmdYears(ctx, os.Args[2:])
	case "prices":
		err = cmdPrices(ctx, os.Args[2:])
	case "compare":
		err = cmdCompare(ctx, os.Args[2:])
	case "rank":
		err = cmdRank(ctx, os.Args[2:])
	case "earnings":
		err = cmdEarnings(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli download --config configs/config.yaml --year 2022")
	fmt.Println("  cli build    --config configs/config.yaml --year 2022")
	fmt.Println("  cli years    --config configs/config.yaml")
	fmt.Println("  cli prices   --config configs/config.yaml --year 2022 [--from 2022-03-01 --to 2022-03-31]")
	fmt.Println("  cli compare  --config configs/config.yaml --year 2022 [--xlsx out.xlsx] [--pdf out.pdf]")
	fmt.Println("  cli rank     --config configs/config.yaml --year 2022")
	fmt.Println("  cli earnings --config configs/config.yaml --year 2022 --variant North-south --out results/ledger.csv")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - download caches raw day files under cache_root/<year>/")
	fmt.Println("  - build assembles the year and overwrites its stored price series")
	fmt.Println("  - compare/rank/earnings read the stored series and the plant's production CSVs")
}

// common are the flags shared by every subcommand.
type common struct {
	cfgPath     *string
	year        *int
	cacheRoot   *string
	workers     *int
	retries     *int
	storeDriver *string
	storePath   *string
}

func commonFlags(fs *flag.FlagSet) common {
	return common{
		cfgPath:     fs.String("config", "", "Path to YAML config (optional)"),
		year:        fs.Int("year", 0, "Calendar year (default: config year, else current year)"),
		cacheRoot:   fs.String("cache-root", "", "Override cache_root"),
		workers:     fs.Int("workers", 0, "Override worker_pool_size"),
		retries:     fs.Int("retries", 0, "Override max_fetch_retries"),
		storeDriver: fs.String("store", "", "Override store.driver (file, sqlite, postgres)"),
		storePath:   fs.String("store-path", "", "Override store.path"),
	}
}

func (c common) load() (*config.Config, int, error) {
	cfg, err := config.LoadWith(*c.cfgPath, config.Overrides{
		Year:            *c.year,
		CacheRoot:       *c.cacheRoot,
		MaxFetchRetries: *c.retries,
		WorkerPoolSize:  *c.workers,
		StoreDriver:     *c.storeDriver,
		StorePath:       *c.storePath,
	}, os.Getenv)
	if err != nil {
		return nil, 0, err
	}
	return cfg, cfg.YearOr(time.Now().Year()), nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	return store.Open(cfg.StoreOptions())
}

func newBuilder(cfg *config.Config, st store.Store) (*ingest.Builder, error) {
	loc, err := data.LoadLocation(cfg.Market.Timezone)
	if err != nil {
		return nil, err
	}
	client := data.NewOMIEClient(cfg.Source.BaseURL, cfg.Source.Timeout)
	fetcher := data.NewFetcher(client, cfg.CacheRoot, cfg.MaxFetchRetries)
	return ingest.NewBuilder(fetcher, data.NewDayParser(loc), st, cfg.WorkerPoolSize), nil
}

func parseRange(fromStr, toStr string, year int) (model.Date, model.Date, error) {
	from, to := model.YearBounds(year)
	var err error
	if fromStr != "" {
		if from, err = model.ParseDate(fromStr); err != nil {
			return from, to, err
		}
	}
	if toStr != "" {
		if to, err = model.ParseDate(toStr); err != nil {
			return from, to, err
		}
	}
	return from, to, align.CheckRange(from, to)
}

func cmdDownload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	c := commonFlags(fs)
	_ = fs.Parse(args)

	cfg, year, err := c.load()
	if err != nil {
		return err
	}
	b, err := newBuilder(cfg, nil)
	if err != nil {
		return err
	}
	files, err := b.DownloadYear(ctx, year)
	if err != nil {
		return err
	}
	var total int64
	fallbacks := 0
	for _, f := range files {
		total += f.Size
		if f.Variant > 1 {
			fallbacks++
		}
	}
	fmt.Printf("Cached %d day files for %d in %s (%s, %d from a later suffix)\n",
		len(files), year, b.Fetcher.YearDir(year), humanize.Bytes(uint64(total)), fallbacks)
	return nil
}

func cmdBuild(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	c := commonFlags(fs)
	_ = fs.Parse(args)

	cfg, year, err := c.load()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	b, err := newBuilder(cfg, st)
	if err != nil {
		return err
	}
	series, err := b.BuildYear(ctx, year)
	if err != nil {
		return err
	}
	start, end, _ := series.Span()
	fmt.Printf("Built %d: %s points from %s to %s (%s store)\n",
		year, humanize.Comma(int64(series.Len())), start.Format(time.RFC3339), end.Format(time.RFC3339), cfg.Store.Driver)
	return nil
}

func cmdYears(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("years", flag.ExitOnError)
	c := commonFlags(fs)
	_ = fs.Parse(args)

	cfg, _, err := c.load()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	years, err := st.Years(ctx)
	if err != nil {
		return err
	}
	if len(years) == 0 {
		fmt.Println("no stored years")
		return nil
	}
	for _, y := range years {
		fmt.Println(y)
	}
	return nil
}

func cmdPrices(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("prices", flag.ExitOnError)
	c := commonFlags(fs)
	fromStr := fs.String("from", "", "First date (YYYY-MM-DD), default Jan 1")
	toStr := fs.String("to", "", "Last date (YYYY-MM-DD), default Dec 31")
	_ = fs.Parse(args)

	cfg, year, err := c.load()
	if err != nil {
		return err
	}
	from, to, err := parseRange(*fromStr, *toStr, year)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	series, err := st.Load(ctx, year)
	if err != nil {
		return err
	}
	restricted, err := align.RestrictPrices(series, from, to)
	if err != nil {
		return err
	}
	avg, err := analysis.AveragePrice(series, from, to)
	if err != nil {
		return err
	}
	stats := analysis.ComputePriceStats(restricted)
	fmt.Printf("%s..%s (%s)\n", from, to, series.Loc())
	fmt.Printf("points=%d average=%s min=%.2f max=%.2f p05=%.2f p95=%.2f\n",
		stats.Count, report.FormatMetric(avg, 2, report.UnitPrice), stats.Min, stats.Max, stats.P05, stats.P95)
	return nil
}

// comparisonInputs loads the stored prices of year and the configured variants.
func comparisonInputs(ctx context.Context, cfg *config.Config, year int) (model.ComparisonInputs, error) {
	st, err := openStore(cfg)
	if err != nil {
		return model.ComparisonInputs{}, err
	}
	defer st.Close()

	prices, err := st.Load(ctx, year)
	if err != nil {
		return model.ComparisonInputs{}, err
	}
	variants, err := cfg.LoadVariants(year)
	if err != nil {
		return model.ComparisonInputs{}, err
	}
	return model.ComparisonInputs{Prices: prices, Variants: variants, Plant: cfg.Plant.ToModelParams()}, nil
}

func cmdCompare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	c := commonFlags(fs)
	fromStr := fs.String("from", "", "First date (YYYY-MM-DD), default Jan 1")
	toStr := fs.String("to", "", "Last date (YYYY-MM-DD), default Dec 31")
	xlsxPath := fs.String("xlsx", "", "Optional: write the table as XLSX")
	pdfPath := fs.String("pdf", "", "Optional: write the table as PDF")
	_ = fs.Parse(args)

	cfg, year, err := c.load()
	if err != nil {
		return err
	}
	from, to, err := parseRange(*fromStr, *toStr, year)
	if err != nil {
		return err
	}
	in, err := comparisonInputs(ctx, cfg, year)
	if err != nil {
		return err
	}
	if len(in.Variants) > 2 {
		in.Variants = in.Variants[:2]
	}
	table, err := analysis.CompareInputs(in, from, to)
	if err != nil {
		return err
	}
	if err := report.WriteText(os.Stdout, table); err != nil {
		return err
	}

	if *xlsxPath != "" {
		out, err := report.BuildComparisonXLSX(table)
		if err != nil {
			return err
		}
		if err := writeOutput(*xlsxPath, out); err != nil {
			return err
		}
	}
	if *pdfPath != "" {
		out, err := report.BuildComparisonPDF(table)
		if err != nil {
			return err
		}
		if err := writeOutput(*pdfPath, out); err != nil {
			return err
		}
	}
	return nil
}

func cmdRank(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	c := commonFlags(fs)
	fromStr := fs.String("from", "", "First date (YYYY-MM-DD), default Jan 1")
	toStr := fs.String("to", "", "Last date (YYYY-MM-DD), default Dec 31")
	_ = fs.Parse(args)

	cfg, year, err := c.load()
	if err != nil {
		return err
	}
	from, to, err := parseRange(*fromStr, *toStr, year)
	if err != nil {
		return err
	}
	in, err := comparisonInputs(ctx, cfg, year)
	if err != nil {
		return err
	}
	ranked, err := analysis.RankByRevenue(in.Variants, in.Prices, from, to, in.Plant.RatedPowerMW)
	if err != nil {
		return err
	}
	return report.WriteRanking(os.Stdout, ranked)
}

func cmdEarnings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("earnings", flag.ExitOnError)
	c := commonFlags(fs)
	fromStr := fs.String("from", "", "First date (YYYY-MM-DD), default Jan 1")
	toStr := fs.String("to", "", "Last date (YYYY-MM-DD), default Dec 31")
	variant := fs.String("variant", "", "Variant name (default: first configured)")
	outPath := fs.String("out", "results/ledger.csv", "Output CSV path")
	_ = fs.Parse(args)

	cfg, year, err := c.load()
	if err != nil {
		return err
	}
	from, to, err := parseRange(*fromStr, *toStr, year)
	if err != nil {
		return err
	}
	in, err := comparisonInputs(ctx, cfg, year)
	if err != nil {
		return err
	}
	prod := in.Variants[0]
	if *variant != "" {
		found := false
		for _, v := range in.Variants {
			if v.Name == *variant {
				prod, found = v, true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown variant %q", *variant)
		}
	}

	res, err := earnings.New(in.Prices.Loc()).RunRange(prod, in.Prices, from, to)
	if err != nil {
		return err
	}
	// ensure output dir exists
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		return err
	}
	if err := earnings.WriteLedgerCSV(*outPath, res.Ledger); err != nil {
		return err
	}

	fmt.Printf("Wrote %d rows to %s\n", len(res.Ledger), *outPath)
	fmt.Printf("Variant=%s energy=%s revenue=%s\n", res.Variant,
		report.FormatUnit(res.EnergyMWh, 1, "MWh"), report.FormatUnit(res.TotalRevenue, 2, report.UnitCurrency))
	return nil
}

func writeOutput(path string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%s)\n", path, humanize.Bytes(uint64(len(body))))
	return nil
}
