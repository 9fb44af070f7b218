package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/price"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/storage/postgres"
)

// priceRuleRow flattens the item reference into columns. The tagged
// union maps to item_kind plus one of product_code / subproduct_id.
type priceRuleRow struct {
	ID           id.ID        `db:"id"`
	DeletionMark bool         `db:"deletion_mark"`
	Version      int          `db:"version"`
	ItemKind     string       `db:"item_kind"`
	ProductCode  *string      `db:"product_code"`
	SubproductID *id.ID       `db:"subproduct_id"`
	Tier         string       `db:"tier"`
	MinQuantity  types.Weight `db:"min_quantity"`
	PricePerKg   types.Money  `db:"price_per_kg"`
	ValidFrom    *time.Time   `db:"valid_from"`
	ValidUntil   *time.Time   `db:"valid_until"`
	Active       bool         `db:"active"`
}

func (row *priceRuleRow) toRule() *price.Rule {
	r := &price.Rule{
		Tier:        customer.Tier(row.Tier),
		MinQuantity: row.MinQuantity,
		PricePerKg:  row.PricePerKg,
		ValidFrom:   row.ValidFrom,
		ValidUntil:  row.ValidUntil,
		Active:      row.Active,
	}
	r.ID = row.ID
	r.DeletionMark = row.DeletionMark
	r.Version = row.Version

	switch product.ItemKind(row.ItemKind) {
	case product.KindProduct:
		if row.ProductCode != nil {
			r.Item = product.RefProduct(*row.ProductCode)
		}
	case product.KindSubproduct:
		if row.SubproductID != nil {
			r.Item = product.RefSubproduct(*row.SubproductID)
		}
	}
	return r
}

func ruleToMap(r *price.Rule) map[string]any {
	m := map[string]any{
		"id":            r.ID,
		"deletion_mark": r.DeletionMark,
		"item_kind":     string(r.Item.Kind),
		"product_code":  nil,
		"subproduct_id": nil,
		"tier":          string(r.Tier),
		"min_quantity":  r.MinQuantity,
		"price_per_kg":  r.PricePerKg,
		"valid_from":    r.ValidFrom,
		"valid_until":   r.ValidUntil,
		"active":        r.Active,
	}
	if r.Item.IsProduct() {
		m["product_code"] = r.Item.ProductCode
	} else if r.Item.IsSubproduct() {
		m["subproduct_id"] = r.Item.SubproductID
	}
	return m
}

var priceRuleCols = []string{
	"id", "deletion_mark", "version", "item_kind", "product_code",
	"subproduct_id", "tier", "min_quantity", "price_per_kg",
	"valid_from", "valid_until", "active",
}

// PriceRuleRepo implements price.Repository.
type PriceRuleRepo struct {
	txManager *postgres.TxManager
}

// NewPriceRuleRepo creates a new price rule repository.
func NewPriceRuleRepo(txManager *postgres.TxManager) *PriceRuleRepo {
	return &PriceRuleRepo{txManager: txManager}
}

func (r *PriceRuleRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func itemCondition(item product.ItemRef) squirrel.Eq {
	if item.IsProduct() {
		return squirrel.Eq{"item_kind": string(product.KindProduct), "product_code": item.ProductCode}
	}
	return squirrel.Eq{"item_kind": string(product.KindSubproduct), "subproduct_id": item.SubproductID}
}

// Create inserts a new rule.
func (r *PriceRuleRepo) Create(ctx context.Context, rule *price.Rule) error {
	data := ruleToMap(rule)
	data["version"] = rule.Version

	sql, args, err := r.builder().Insert(priceRuleTable).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert price rule: %w", err)
	}
	return nil
}

// GetByID retrieves a rule.
func (r *PriceRuleRepo) GetByID(ctx context.Context, ruleID id.ID) (*price.Rule, error) {
	sql, args, err := r.builder().
		Select(priceRuleCols...).
		From(priceRuleTable).
		Where(squirrel.Eq{"id": ruleID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	row := &priceRuleRow{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("price rule", ruleID.String())
		}
		return nil, fmt.Errorf("get price rule: %w", err)
	}
	return row.toRule(), nil
}

// Update modifies an existing rule with optimistic locking.
func (r *PriceRuleRepo) Update(ctx context.Context, rule *price.Rule) error {
	data := ruleToMap(rule)
	delete(data, "id")

	sql, args, err := r.builder().
		Update(priceRuleTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": rule.ID}).
		Where(squirrel.Eq{"version": rule.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update price rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("price rule", rule.ID)
	}
	return nil
}

// SetActive toggles the active flag.
func (r *PriceRuleRepo) SetActive(ctx context.Context, ruleID id.ID, active bool) error {
	sql, args, err := r.builder().
		Update(priceRuleTable).
		Set("active", active).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": ruleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set active: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("execute set active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("price rule", ruleID.String())
	}
	return nil
}

// FindApplicable retrieves active in-window rules for (item, tier),
// ordered by min_quantity descending so the resolver scans the ladder
// from the highest threshold down.
func (r *PriceRuleRepo) FindApplicable(ctx context.Context, item product.ItemRef, tier customer.Tier, at time.Time) ([]*price.Rule, error) {
	q := r.builder().
		Select(priceRuleCols...).
		From(priceRuleTable).
		Where(itemCondition(item)).
		Where(squirrel.Eq{"tier": string(tier)}).
		Where(squirrel.Eq{"active": true}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Or{
			squirrel.Eq{"valid_from": nil},
			squirrel.LtOrEq{"valid_from": at},
		}).
		Where(squirrel.Or{
			squirrel.Eq{"valid_until": nil},
			squirrel.GtOrEq{"valid_until": at},
		}).
		OrderBy("min_quantity DESC")

	return r.selectRules(ctx, q)
}

// FindConflicting retrieves active rules sharing (item, tier,
// min_quantity) with the given rule whose validity windows overlap
// its own, excluding the rule itself. Disjoint windows never
// conflict; a NULL bound is open on that side.
func (r *PriceRuleRepo) FindConflicting(ctx context.Context, rule *price.Rule) ([]*price.Rule, error) {
	q := r.builder().
		Select(priceRuleCols...).
		From(priceRuleTable).
		Where(itemCondition(rule.Item)).
		Where(squirrel.Eq{"tier": string(rule.Tier)}).
		Where(squirrel.Eq{"min_quantity": rule.MinQuantity}).
		Where(squirrel.Eq{"active": true}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.NotEq{"id": rule.ID})

	if rule.ValidUntil != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"valid_from": nil},
			squirrel.LtOrEq{"valid_from": *rule.ValidUntil},
		})
	}
	if rule.ValidFrom != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"valid_until": nil},
			squirrel.GtOrEq{"valid_until": *rule.ValidFrom},
		})
	}

	return r.selectRules(ctx, q)
}

// ListForItem retrieves the full ladder for an item across tiers.
func (r *PriceRuleRepo) ListForItem(ctx context.Context, item product.ItemRef, filter domain.ListFilter) (domain.ListResult[*price.Rule], error) {
	result := domain.ListResult[*price.Rule]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder().
		Select(priceRuleCols...).
		From(priceRuleTable).
		Where(itemCondition(item)).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("tier ASC", "min_quantity ASC")

	if !filter.IncludeInactive {
		q = q.Where(squirrel.Eq{"active": true})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	rules, err := r.selectRules(ctx, q)
	if err != nil {
		return result, err
	}
	result.Items = rules
	result.TotalCount = int64(len(rules))
	return result, nil
}

func (r *PriceRuleRepo) selectRules(ctx context.Context, q squirrel.SelectBuilder) ([]*price.Rule, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*priceRuleRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select price rules: %w", err)
	}

	rules := make([]*price.Rule, len(rows))
	for i, row := range rows {
		rules[i] = row.toRule()
	}
	return rules, nil
}
