// Command seed-db populates a database with demo users, shops, pricing
// rules, discount tiers, documents, and API keys for local development.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarxemo/printhub/internal/repository"
)

const (
	upsertUserSQL = `INSERT INTO users (id, email, role, subscription_tier)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email,
			role = EXCLUDED.role, subscription_tier = EXCLUDED.subscription_tier`

	upsertShopSQL = `INSERT INTO shops (id, owner_id, name, is_accepting_orders, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name,
			is_accepting_orders = EXCLUDED.is_accepting_orders`

	upsertRuleSQL = `INSERT INTO shop_pricing_rules (shop_id, service_type, base_price, modifiers)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (shop_id, service_type) DO UPDATE SET
			base_price = EXCLUDED.base_price, modifiers = EXCLUDED.modifiers`

	upsertTierSQL = `INSERT INTO page_range_discounts (id, shop_id, min_pages, max_pages, discount_percent)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET min_pages = EXCLUDED.min_pages,
			max_pages = EXCLUDED.max_pages, discount_percent = EXCLUDED.discount_percent`

	upsertDocumentSQL = `INSERT INTO documents (id, owner_id, file_name, file_type, file_size)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, user_id, key_hash, name, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash, active = TRUE`
)

// Stable demo IDs so re-running the seeder is idempotent.
const (
	customerID  = "11111111-1111-1111-1111-111111111111"
	studentID   = "22222222-2222-2222-2222-222222222222"
	businessID  = "33333333-3333-3333-3333-333333333333"
	ownerID     = "44444444-4444-4444-4444-444444444444"
	shopID      = "55555555-5555-5555-5555-555555555555"
	documentID  = "66666666-6666-6666-6666-666666666666"
	globalTier1 = "77777777-7777-7777-7777-777777777771"
	globalTier2 = "77777777-7777-7777-7777-777777777772"
	shopTierID  = "88888888-8888-8888-8888-888888888888"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed for the demo customer (or PRINT_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PRINT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PRINT_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or PRINT_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PRINT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedUsersAndShop(ctx, pool); err != nil {
		return errors.Wrap(err, "seed users and shop")
	}
	if err := seedCatalog(ctx, pool); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedAPIKeys(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api keys")
	}

	return nil
}

func seedUsersAndShop(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("upserting demo users")

	users := []struct {
		id, email, role, subscription string
	}{
		{customerID, "customer@example.com", "CUSTOMER", "FREE"},
		{studentID, "student@example.com", "CUSTOMER", "STUDENT"},
		{businessID, "business@example.com", "CUSTOMER", "BUSINESS"},
		{ownerID, "owner@example.com", "SHOP_OWNER", "FREE"},
	}
	for _, u := range users {
		if _, err := pool.Exec(ctx, upsertUserSQL, u.id, u.email, u.role, u.subscription); err != nil {
			return errors.Wrapf(err, "upsert user %s", u.email)
		}
	}

	slog.Info("upserting demo shop")

	if _, err := pool.Exec(ctx, upsertShopSQL,
		shopID, ownerID, "Campus Copy Center", true, 40.7128, -74.0060,
	); err != nil {
		return errors.Wrap(err, "upsert shop")
	}

	if _, err := pool.Exec(ctx, upsertDocumentSQL,
		documentID, customerID, "thesis.pdf", "application/pdf", int64(1<<20),
	); err != nil {
		return errors.Wrap(err, "upsert document")
	}

	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("upserting pricing rules")

	rules := []struct {
		service   string
		basePrice string
		modifiers string
	}{
		{"PRINTING_BW", "90.00", `{"A4": 1.0, "A3": 1.5}`},
		{"PRINTING_COLOR", "450.00", `{"A4": 1.0, "A3": 1.5}`},
		{"BINDING", "800.00", `{}`},
	}
	for _, r := range rules {
		if _, err := pool.Exec(ctx, upsertRuleSQL, shopID, r.service, r.basePrice, r.modifiers); err != nil {
			return errors.Wrapf(err, "upsert pricing rule %s", r.service)
		}
	}

	slog.Info("upserting discount tiers")

	tiers := []struct {
		id       string
		shopID   any
		minPages int
		maxPages any
		percent  string
	}{
		{globalTier1, nil, 50, 199, "5.00"},
		{globalTier2, nil, 200, nil, "10.00"},
		{shopTierID, shopID, 100, nil, "15.00"},
	}
	for _, t := range tiers {
		if _, err := pool.Exec(ctx, upsertTierSQL, t.id, t.shopID, t.minPages, t.maxPages, t.percent); err != nil {
			return errors.Wrapf(err, "upsert discount tier %s", t.id)
		}
	}

	return nil
}

func seedAPIKeys(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("upserting API keys")

	keys := []struct {
		id, userID, key, name string
	}{
		{"demo-customer", customerID, apiKey, "Demo customer key"},
		{"demo-student", studentID, apiKey + "-student", "Demo student key"},
		{"demo-business", businessID, apiKey + "-business", "Demo business key"},
		{"demo-owner", ownerID, apiKey + "-owner", "Demo shop owner key"},
	}
	for _, k := range keys {
		mac := hmac.New(sha256.New, []byte(pepper))
		mac.Write([]byte(k.key))
		hash := hex.EncodeToString(mac.Sum(nil))

		if _, err := pool.Exec(ctx, upsertAPIKeySQL, k.id, k.userID, hash, k.name); err != nil {
			return errors.Wrapf(err, "upsert api key %s", k.id)
		}

		slog.Info("upserted API key", slog.String("id", k.id), slog.String("name", k.name))
	}

	return nil
}
