package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/storage/postgres"
)

const (
	productTable        = "cat_product"
	subproductTable     = "cat_subproduct"
	modificationTable   = "cat_modification"
	modProductLinkTable = "mod_product_link"
	modSubLinkTable     = "mod_subproduct_link"
	orderLineTable      = "doc_order_line"
	priceRuleTable      = "cat_price_rule"
)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			productTable,
			postgres.ExtractDBColumns[product.Product](),
			func() *product.Product { return &product.Product{} },
		),
	}
}

// FindByCategory retrieves active products in a category.
func (r *ProductRepo) FindByCategory(ctx context.Context, category product.Category, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	result := domain.ListResult[*product.Product]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect().
		Where(squirrel.Eq{"category": string(category)}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Eq{"active": true}).
		OrderBy("name ASC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	var items []*product.Product
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return result, fmt.Errorf("find by category: %w", err)
	}
	result.Items = items
	result.TotalCount = int64(len(items))

	return result, nil
}

// IsReferenced reports whether price rules or order lines reference the code.
func (r *ProductRepo) IsReferenced(ctx context.Context, code string) (bool, error) {
	sql := fmt.Sprintf(`
		SELECT 1 WHERE EXISTS (SELECT 1 FROM %s WHERE product_code = $1)
		          OR EXISTS (SELECT 1 FROM %s WHERE product_code = $1)
	`, priceRuleTable, orderLineTable)

	var one int
	err := r.Querier(ctx).QueryRow(ctx, sql, code).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is referenced: %w", err)
	}
	return true, nil
}

// SetActive toggles the active flag by business code.
func (r *ProductRepo) SetActive(ctx context.Context, code string, active bool) error {
	q := r.Builder().
		Update(productTable).
		Set("active", active).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"code": code})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build set active: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("execute set active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("product", code)
	}
	return nil
}

// SubproductRepo implements product.SubproductRepository.
type SubproductRepo struct {
	txManager *postgres.TxManager
	cols      []string
}

// NewSubproductRepo creates a new subproduct repository.
func NewSubproductRepo(txManager *postgres.TxManager) *SubproductRepo {
	return &SubproductRepo{
		txManager: txManager,
		cols:      postgres.ExtractDBColumns[product.Subproduct](),
	}
}

func (r *SubproductRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a new subproduct.
func (r *SubproductRepo) Create(ctx context.Context, sub *product.Subproduct) error {
	data := postgres.StructToMap(sub)
	filtered := make(map[string]any, len(r.cols))
	for _, col := range r.cols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.builder().Insert(subproductTable).SetMap(filtered).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert subproduct: %w", err)
	}
	return nil
}

// GetByID retrieves a subproduct.
func (r *SubproductRepo) GetByID(ctx context.Context, subID id.ID) (*product.Subproduct, error) {
	sql, args, err := r.builder().
		Select(r.cols...).
		From(subproductTable).
		Where(squirrel.Eq{"id": subID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	sub := &product.Subproduct{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), sub, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("subproduct", subID.String())
		}
		return nil, fmt.Errorf("get subproduct: %w", err)
	}
	return sub, nil
}

// Update modifies an existing subproduct with optimistic locking.
func (r *SubproductRepo) Update(ctx context.Context, sub *product.Subproduct) error {
	data := postgres.StructToMap(sub)
	filtered := make(map[string]any, len(r.cols))
	for _, col := range r.cols {
		if col == "id" || col == "version" {
			continue
		}
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.builder().
		Update(subproductTable).
		SetMap(filtered).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": sub.ID}).
		Where(squirrel.Eq{"version": sub.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update subproduct: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("subproduct", sub.ID)
	}
	return nil
}

// ListByProduct retrieves subproducts of a parent product.
func (r *SubproductRepo) ListByProduct(ctx context.Context, productCode string, includeInactive bool) ([]*product.Subproduct, error) {
	q := r.builder().
		Select(r.cols...).
		From(subproductTable).
		Where(squirrel.Eq{"product_code": productCode}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("name ASC")
	if !includeInactive {
		q = q.Where(squirrel.Eq{"active": true})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*product.Subproduct
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list subproducts: %w", err)
	}
	return items, nil
}

// IsReferenced reports whether price rules or order lines reference the subproduct.
func (r *SubproductRepo) IsReferenced(ctx context.Context, subID id.ID) (bool, error) {
	sql := fmt.Sprintf(`
		SELECT 1 WHERE EXISTS (SELECT 1 FROM %s WHERE subproduct_id = $1)
		          OR EXISTS (SELECT 1 FROM %s WHERE subproduct_id = $1)
	`, priceRuleTable, orderLineTable)

	var one int
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, subID).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is referenced: %w", err)
	}
	return true, nil
}

// SetActive toggles the active flag.
func (r *SubproductRepo) SetActive(ctx context.Context, subID id.ID, active bool) error {
	sql, args, err := r.builder().
		Update(subproductTable).
		Set("active", active).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": subID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set active: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("execute set active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("subproduct", subID.String())
	}
	return nil
}

// ModificationRepo implements product.ModificationRepository.
type ModificationRepo struct {
	*BaseCatalogRepo[*product.Modification]
}

// NewModificationRepo creates a new modification repository.
func NewModificationRepo(txManager *postgres.TxManager) *ModificationRepo {
	return &ModificationRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			modificationTable,
			postgres.ExtractDBColumns[product.Modification](),
			func() *product.Modification { return &product.Modification{} },
		),
	}
}

// GetByID retrieves a modification with its item links loaded.
func (r *ModificationRepo) GetByID(ctx context.Context, modID id.ID) (*product.Modification, error) {
	mod, err := r.BaseCatalogRepo.GetByID(ctx, modID)
	if err != nil {
		return nil, err
	}
	if err := r.loadLinks(ctx, mod); err != nil {
		return nil, err
	}
	return mod, nil
}

func (r *ModificationRepo) loadLinks(ctx context.Context, mod *product.Modification) error {
	querier := r.Querier(ctx)

	sql := fmt.Sprintf("SELECT product_code FROM %s WHERE modification_id = $1 ORDER BY product_code", modProductLinkTable)
	if err := pgxscan.Select(ctx, querier, &mod.ProductCodes, sql, mod.ID); err != nil {
		return fmt.Errorf("load product links: %w", err)
	}

	sql = fmt.Sprintf("SELECT subproduct_id FROM %s WHERE modification_id = $1", modSubLinkTable)
	if err := pgxscan.Select(ctx, querier, &mod.SubproductIDs, sql, mod.ID); err != nil {
		return fmt.Errorf("load subproduct links: %w", err)
	}
	return nil
}

// LinkProduct associates the modification with a product.
func (r *ModificationRepo) LinkProduct(ctx context.Context, modID id.ID, productCode string) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s (modification_id, product_code) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, modProductLinkTable)
	if _, err := r.Querier(ctx).Exec(ctx, sql, modID, productCode); err != nil {
		return fmt.Errorf("link product: %w", err)
	}
	return nil
}

// LinkSubproduct associates the modification with a subproduct.
func (r *ModificationRepo) LinkSubproduct(ctx context.Context, modID id.ID, subID id.ID) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s (modification_id, subproduct_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, modSubLinkTable)
	if _, err := r.Querier(ctx).Exec(ctx, sql, modID, subID); err != nil {
		return fmt.Errorf("link subproduct: %w", err)
	}
	return nil
}

// UnlinkProduct removes a product association.
func (r *ModificationRepo) UnlinkProduct(ctx context.Context, modID id.ID, productCode string) error {
	sql := fmt.Sprintf("DELETE FROM %s WHERE modification_id = $1 AND product_code = $2", modProductLinkTable)
	if _, err := r.Querier(ctx).Exec(ctx, sql, modID, productCode); err != nil {
		return fmt.Errorf("unlink product: %w", err)
	}
	return nil
}

// UnlinkSubproduct removes a subproduct association.
func (r *ModificationRepo) UnlinkSubproduct(ctx context.Context, modID id.ID, subID id.ID) error {
	sql := fmt.Sprintf("DELETE FROM %s WHERE modification_id = $1 AND subproduct_id = $2", modSubLinkTable)
	if _, err := r.Querier(ctx).Exec(ctx, sql, modID, subID); err != nil {
		return fmt.Errorf("unlink subproduct: %w", err)
	}
	return nil
}

// IsLinkedTo reports whether the modification applies to the item.
func (r *ModificationRepo) IsLinkedTo(ctx context.Context, modID id.ID, item product.ItemRef) (bool, error) {
	var sql string
	var arg any
	if item.IsProduct() {
		sql = fmt.Sprintf("SELECT 1 FROM %s WHERE modification_id = $1 AND product_code = $2 LIMIT 1", modProductLinkTable)
		arg = item.ProductCode
	} else {
		sql = fmt.Sprintf("SELECT 1 FROM %s WHERE modification_id = $1 AND subproduct_id = $2 LIMIT 1", modSubLinkTable)
		arg = item.SubproductID
	}

	var one int
	err := r.Querier(ctx).QueryRow(ctx, sql, modID, arg).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is linked: %w", err)
	}
	return true, nil
}

// ListForItem retrieves modifications applicable to the item.
func (r *ModificationRepo) ListForItem(ctx context.Context, item product.ItemRef) ([]*product.Modification, error) {
	var linkSQL string
	var arg any
	if item.IsProduct() {
		linkSQL = fmt.Sprintf("SELECT modification_id FROM %s WHERE product_code = $1", modProductLinkTable)
		arg = item.ProductCode
	} else {
		linkSQL = fmt.Sprintf("SELECT modification_id FROM %s WHERE subproduct_id = $1", modSubLinkTable)
		arg = item.SubproductID
	}

	sql := fmt.Sprintf(`
		SELECT m.* FROM %s m
		WHERE m.id IN (%s) AND m.deletion_mark = false AND m.active = true
		ORDER BY m.name
	`, modificationTable, linkSQL)

	var items []*product.Modification
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, arg); err != nil {
		return nil, fmt.Errorf("list modifications: %w", err)
	}
	return items, nil
}
