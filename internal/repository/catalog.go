package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarxemo/printhub/internal/domain/catalog"
)

const (
	getPricingRuleSQL = `SELECT shop_id, service_type, base_price, modifiers
		FROM shop_pricing_rules WHERE shop_id = $1 AND service_type = $2`

	// First-match semantics: the smallest min_pages wins among overlapping
	// ranges, so ORDER BY min_pages with LIMIT 1.
	findShopTierSQL = `SELECT id, shop_id, min_pages, max_pages, discount_percent
		FROM page_range_discounts
		WHERE shop_id = $1 AND min_pages <= $2 AND (max_pages >= $2 OR max_pages IS NULL)
		ORDER BY min_pages LIMIT 1`

	findGlobalTierSQL = `SELECT id, shop_id, min_pages, max_pages, discount_percent
		FROM page_range_discounts
		WHERE shop_id IS NULL AND min_pages <= $1 AND (max_pages >= $1 OR max_pages IS NULL)
		ORDER BY min_pages LIMIT 1`
)

var _ catalog.RuleRepository = (*PricingRuleRepository)(nil)

// PricingRuleRepository implements catalog.RuleRepository backed by PostgreSQL.
type PricingRuleRepository struct {
	pool *pgxpool.Pool
}

// NewPricingRuleRepository returns a PricingRuleRepository that uses the given pool.
func NewPricingRuleRepository(pool *pgxpool.Pool) *PricingRuleRepository {
	return &PricingRuleRepository{pool: pool}
}

// GetRule returns the unique pricing rule for (shop, service type), or
// catalog.ErrRuleNotFound when the shop has not configured one.
func (r *PricingRuleRepository) GetRule(ctx context.Context, shopID string, service catalog.ServiceType) (*catalog.PricingRule, error) {
	var (
		rule        catalog.PricingRule
		serviceName string
		modifiers   []byte
	)
	err := r.pool.QueryRow(ctx, getPricingRuleSQL, shopID, string(service)).Scan(
		&rule.ShopID, &serviceName, &rule.BasePrice, &modifiers,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrRuleNotFound
		}
		return nil, fmt.Errorf("getting pricing rule %q/%q: %w", shopID, service, err)
	}

	rule.Service = catalog.ServiceType(serviceName)
	if err := json.Unmarshal(modifiers, &rule.Modifiers); err != nil {
		return nil, fmt.Errorf("parsing modifiers for rule %q/%q: %w", shopID, service, err)
	}
	return &rule, nil
}

var _ catalog.TierRepository = (*DiscountTierRepository)(nil)

// DiscountTierRepository implements catalog.TierRepository backed by PostgreSQL.
type DiscountTierRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountTierRepository returns a DiscountTierRepository that uses the given pool.
func NewDiscountTierRepository(pool *pgxpool.Pool) *DiscountTierRepository {
	return &DiscountTierRepository{pool: pool}
}

// FindShopTier returns the first shop-specific tier covering pageCount in
// ascending min_pages order, or catalog.ErrTierNotFound.
func (r *DiscountTierRepository) FindShopTier(ctx context.Context, shopID string, pageCount int) (*catalog.DiscountTier, error) {
	return r.findTier(ctx, findShopTierSQL, shopID, pageCount)
}

// FindGlobalTier returns the first global tier covering pageCount in
// ascending min_pages order, or catalog.ErrTierNotFound.
func (r *DiscountTierRepository) FindGlobalTier(ctx context.Context, pageCount int) (*catalog.DiscountTier, error) {
	return r.findTier(ctx, findGlobalTierSQL, pageCount)
}

func (r *DiscountTierRepository) findTier(ctx context.Context, sql string, args ...any) (*catalog.DiscountTier, error) {
	var t catalog.DiscountTier
	err := r.pool.QueryRow(ctx, sql, args...).Scan(
		&t.ID, &t.ShopID, &t.MinPages, &t.MaxPages, &t.DiscountPercent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrTierNotFound
		}
		return nil, fmt.Errorf("finding discount tier: %w", err)
	}
	return &t, nil
}
