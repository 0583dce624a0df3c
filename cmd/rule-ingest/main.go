// Command rule-ingest loads legacy pricing exports into the database.
//
// The previous platform exported its pricing configuration as gzipped JSONL
// dumps, one object per line, with heavy duplication across dump
// generations. Files are parsed concurrently, deduplicated with a bloom
// filter, and upserted so the newest dump wins.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/tarxemo/printhub/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000

	kindPricingRule  = "pricing_rule"
	kindPageDiscount = "page_discount"
)

const (
	upsertRuleSQL = `INSERT INTO shop_pricing_rules (shop_id, service_type, base_price, modifiers)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (shop_id, service_type) DO UPDATE SET
			base_price = EXCLUDED.base_price, modifiers = EXCLUDED.modifiers`

	upsertDiscountSQL = `INSERT INTO page_range_discounts (id, shop_id, min_pages, max_pages, discount_percent)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET min_pages = EXCLUDED.min_pages,
			max_pages = EXCLUDED.max_pages, discount_percent = EXCLUDED.discount_percent`
)

// record is one line of a legacy dump. Pricing rules and page discounts
// share a file, discriminated by kind.
type record struct {
	kind string

	shopID    string
	service   string
	basePrice string
	modifiers []byte

	id       string
	minPages int
	maxPages *int
	percent  string
}

// key identifies a record for deduplication across dump generations.
func (r *record) key() string {
	if r.kind == kindPricingRule {
		return r.kind + "/" + r.shopID + "/" + r.service
	}
	return r.kind + "/" + r.id
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing pricing-*.jsonl.gz dumps")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("rule ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("rule ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "pricing-*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob dumps")
	}
	if len(files) == 0 {
		return errors.Errorf("no pricing-*.jsonl.gz dumps found in %s", dataDir)
	}

	// Dump names carry a timestamp; newest first so the first sighting of a
	// key is the freshest one.
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	slog.Info("parsing dumps", slog.Int("files", len(files)))

	parsed := make([][]record, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			records, err := parseDump(gctx, f)
			if err != nil {
				return errors.Wrapf(err, "parse %s", f)
			}
			slog.Info("parsed dump", slog.String("file", f), slog.Int("records", len(records)))
			parsed[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return writeRecords(ctx, pool, parsed)
}

// parseDump streams one gzipped JSONL file and decodes every line.
func parseDump(ctx context.Context, path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	var (
		records []record
		line    uint64
	)
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line++

		rec, err := decodeRecord(scanner.Bytes())
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		records = append(records, rec)

		if line%progressEvery == 0 {
			slog.Info("parse progress", slog.String("file", path), slog.Uint64("lines", line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return records, nil
}

func decodeRecord(line []byte) (record, error) {
	var rec record
	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "kind":
			rec.kind, err = d.Str()
		case "shop_id":
			rec.shopID, err = d.Str()
		case "service_type":
			rec.service, err = d.Str()
		case "base_price":
			var num jx.Num
			if num, err = d.Num(); err == nil {
				rec.basePrice = num.String()
			}
		case "modifiers":
			var raw jx.Raw
			if raw, err = d.Raw(); err == nil {
				rec.modifiers = append([]byte(nil), raw...)
			}
		case "id":
			rec.id, err = d.Str()
		case "min_pages":
			rec.minPages, err = d.Int()
		case "max_pages":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var v int
			if v, err = d.Int(); err == nil {
				rec.maxPages = &v
			}
		case "discount_percent":
			var num jx.Num
			if num, err = d.Num(); err == nil {
				rec.percent = num.String()
			}
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		return rec, errors.Wrap(err, "decode object")
	}

	switch rec.kind {
	case kindPricingRule, kindPageDiscount:
		return rec, nil
	default:
		return rec, errors.Errorf("unknown record kind %q", rec.kind)
	}
}

// writeRecords upserts records in dump order, keeping only the first
// sighting of each key. Dumps are cumulative snapshots, so a bloom false
// positive only means an older copy of the same row is skipped.
func writeRecords(ctx context.Context, pool *pgxpool.Pool, parsed [][]record) error {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	var written, skipped int
	for _, records := range parsed {
		for i := range records {
			rec := &records[i]
			if filter.TestAndAddString(rec.key()) {
				skipped++
				continue
			}
			if err := upsertRecord(ctx, pool, rec); err != nil {
				return errors.Wrapf(err, "upsert %s", rec.key())
			}
			written++

			if written%10_000 == 0 {
				slog.Info("write progress", slog.Int("written", written))
			}
		}
	}

	slog.Info("write complete", slog.Int("written", written), slog.Int("skipped", skipped))
	return nil
}

func upsertRecord(ctx context.Context, pool *pgxpool.Pool, rec *record) error {
	switch rec.kind {
	case kindPricingRule:
		modifiers := rec.modifiers
		if len(modifiers) == 0 {
			modifiers = []byte("{}")
		}
		_, err := pool.Exec(ctx, upsertRuleSQL, rec.shopID, rec.service, rec.basePrice, modifiers)
		return err
	case kindPageDiscount:
		var shopID any
		if rec.shopID != "" {
			shopID = rec.shopID
		}
		_, err := pool.Exec(ctx, upsertDiscountSQL, rec.id, shopID, rec.minPages, rec.maxPages, rec.percent)
		return err
	default:
		return fmt.Errorf("unknown record kind %q", rec.kind)
	}
}
