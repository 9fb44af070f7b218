package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/storage/postgres"
)

const (
	customerTable = "cat_customer"
	addressTable  = "cat_delivery_address"
)

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	*BaseCatalogRepo[*customer.Customer]
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txManager *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			customerTable,
			postgres.ExtractDBColumns[customer.Customer](),
			func() *customer.Customer { return &customer.Customer{} },
		),
	}
}

// FindByAlias retrieves a customer by alias.
func (r *CustomerRepo) FindByAlias(ctx context.Context, alias string) (*customer.Customer, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"alias": alias}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	c, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("customer", alias)
		}
		return nil, err
	}
	return c, nil
}

// FindByTier retrieves customers in a tier.
func (r *CustomerRepo) FindByTier(ctx context.Context, tier customer.Tier, filter domain.ListFilter) (domain.ListResult[*customer.Customer], error) {
	result := domain.ListResult[*customer.Customer]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect().
		Where(squirrel.Eq{"tier": string(tier)}).
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

	var items []*customer.Customer
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return result, fmt.Errorf("find by tier: %w", err)
	}
	result.Items = items
	result.TotalCount = int64(len(items))

	return result, nil
}

// AddressRepo implements customer.AddressRepository.
type AddressRepo struct {
	txManager *postgres.TxManager
	cols      []string
}

// NewAddressRepo creates a new delivery address repository.
func NewAddressRepo(txManager *postgres.TxManager) *AddressRepo {
	return &AddressRepo{
		txManager: txManager,
		cols:      postgres.ExtractDBColumns[customer.DeliveryAddress](),
	}
}

func (r *AddressRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a new address.
func (r *AddressRepo) Create(ctx context.Context, addr *customer.DeliveryAddress) error {
	data := postgres.StructToMap(addr)
	filtered := make(map[string]any, len(r.cols))
	for _, col := range r.cols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.builder().Insert(addressTable).SetMap(filtered).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

// GetByID retrieves an address.
func (r *AddressRepo) GetByID(ctx context.Context, addrID id.ID) (*customer.DeliveryAddress, error) {
	sql, args, err := r.builder().
		Select(r.cols...).
		From(addressTable).
		Where(squirrel.Eq{"id": addrID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	addr := &customer.DeliveryAddress{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), addr, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("address", addrID.String())
		}
		return nil, fmt.Errorf("get address: %w", err)
	}
	return addr, nil
}

// Update modifies an existing address with optimistic locking.
func (r *AddressRepo) Update(ctx context.Context, addr *customer.DeliveryAddress) error {
	data := postgres.StructToMap(addr)
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
		Update(addressTable).
		SetMap(filtered).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": addr.ID}).
		Where(squirrel.Eq{"version": addr.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("address", addr.ID)
	}
	return nil
}

// ListByCustomer retrieves addresses of a customer.
func (r *AddressRepo) ListByCustomer(ctx context.Context, customerID id.ID, includeInactive bool) ([]*customer.DeliveryAddress, error) {
	q := r.builder().
		Select(r.cols...).
		From(addressTable).
		Where(squirrel.Eq{"customer_id": customerID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("street ASC")
	if !includeInactive {
		q = q.Where(squirrel.Eq{"active": true})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*customer.DeliveryAddress
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return items, nil
}

// SetActive toggles the active flag.
func (r *AddressRepo) SetActive(ctx context.Context, addrID id.ID, active bool) error {
	sql, args, err := r.builder().
		Update(addressTable).
		Set("active", active).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": addrID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set active: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("execute set active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("address", addrID.String())
	}
	return nil
}
