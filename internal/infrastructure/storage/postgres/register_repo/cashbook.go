// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/registers/cashbook"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/storage/postgres"
	"github.com/Essau-dev/PolleriaMontiel/pkg/numerator"
)

const (
	movementTable             = "reg_cash_movement"
	movementDenominationTable = "reg_movement_denomination"
	periodTable               = "reg_drawer_period"
	periodDenominationTable   = "reg_period_denomination"
)

// periodFolioConfig formats drawer cut folios as CORTE-2026-00001.
// Cuts are accountable documents, so numbering is strict and gapless.
var periodFolioConfig = numerator.DefaultConfig("CORTE")

// CashbookRepo implements cashbook.Repository.
type CashbookRepo struct {
	txManager    *postgres.TxManager
	folios       *numerator.Service
	movementCols []string
	periodCols   []string
}

// NewCashbookRepo creates a new cashbook register repository.
func NewCashbookRepo(txManager *postgres.TxManager) *CashbookRepo {
	r := &CashbookRepo{
		txManager:    txManager,
		movementCols: postgres.ExtractDBColumns[cashbook.Movement](),
		periodCols:   postgres.ExtractDBColumns[cashbook.DrawerPeriod](),
	}
	r.folios = numerator.NewWithSource(func(ctx context.Context) numerator.Querier {
		return r.querier(ctx)
	})
	return r
}

func (r *CashbookRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *CashbookRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// CreateMovement inserts a movement with its breakdown rows. Ledger
// entries are immutable, so there is no matching update.
func (r *CashbookRepo) CreateMovement(ctx context.Context, m *cashbook.Movement) error {
	data := postgres.StructToMap(m)
	filtered := make(map[string]any, len(r.movementCols))
	for _, col := range r.movementCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.builder().Insert(movementTable).SetMap(filtered).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	return r.insertBreakdown(ctx, movementDenominationTable, "movement_id", m.ID, m.Breakdown)
}

// GetMovement retrieves a movement with its breakdown.
func (r *CashbookRepo) GetMovement(ctx context.Context, movementID id.ID) (*cashbook.Movement, error) {
	sql, args, err := r.builder().
		Select(r.movementCols...).
		From(movementTable).
		Where(squirrel.Eq{"id": movementID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	m := &cashbook.Movement{}
	if err := pgxscan.Get(ctx, r.querier(ctx), m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("movement", movementID.String())
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}

	breakdown, err := r.loadBreakdown(ctx, movementDenominationTable, "movement_id", m.ID)
	if err != nil {
		return nil, err
	}
	m.Breakdown = breakdown
	return m, nil
}

// ListMovementsByPeriod retrieves all movements of a period in
// chronological order, breakdowns included.
func (r *CashbookRepo) ListMovementsByPeriod(ctx context.Context, periodID id.ID) ([]*cashbook.Movement, error) {
	q := r.builder().
		Select(r.movementCols...).
		From(movementTable).
		Where(squirrel.Eq{"period_id": periodID}).
		OrderBy("occurred_at ASC", "created_at ASC")

	return r.selectMovements(ctx, q)
}

// ListMovementsByOrder retrieves all movements linked to an order.
func (r *CashbookRepo) ListMovementsByOrder(ctx context.Context, orderID id.ID) ([]*cashbook.Movement, error) {
	q := r.builder().
		Select(r.movementCols...).
		From(movementTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("occurred_at ASC", "created_at ASC")

	return r.selectMovements(ctx, q)
}

// LockResponsible takes a transaction-scoped advisory lock keyed on
// the responsible user. Two concurrent opens for the same user
// serialize on it, so the open-period check that follows cannot pass
// twice. The lock releases at commit or rollback.
func (r *CashbookRepo) LockResponsible(ctx context.Context, userID id.ID) error {
	const lockSQL = "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))"
	if _, err := r.querier(ctx).Exec(ctx, lockSQL, userID.String()); err != nil {
		return fmt.Errorf("lock responsible: %w", err)
	}
	return nil
}

// CreatePeriod inserts a drawer period, assigning its folio.
func (r *CashbookRepo) CreatePeriod(ctx context.Context, p *cashbook.DrawerPeriod) error {
	if p.Number == "" {
		folio, err := r.folios.GetNextNumber(ctx, periodFolioConfig, nil, p.OpenedAt)
		if err != nil {
			return fmt.Errorf("next period folio: %w", err)
		}
		p.Number = folio
	}

	data := postgres.StructToMap(p)
	filtered := make(map[string]any, len(r.periodCols))
	for _, col := range r.periodCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.builder().Insert(periodTable).SetMap(filtered).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert period: %w", err)
	}

	return r.insertBreakdown(ctx, periodDenominationTable, "period_id", p.ID, p.ClosingBreakdown)
}

// GetPeriod retrieves a period with its closing breakdown.
func (r *CashbookRepo) GetPeriod(ctx context.Context, periodID id.ID) (*cashbook.DrawerPeriod, error) {
	sql, args, err := r.builder().
		Select(r.periodCols...).
		From(periodTable).
		Where(squirrel.Eq{"id": periodID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	p := &cashbook.DrawerPeriod{}
	if err := pgxscan.Get(ctx, r.querier(ctx), p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("drawer period", periodID.String())
		}
		return nil, fmt.Errorf("get period: %w", err)
	}

	breakdown, err := r.loadBreakdown(ctx, periodDenominationTable, "period_id", p.ID)
	if err != nil {
		return nil, err
	}
	p.ClosingBreakdown = breakdown
	return p, nil
}

// UpdatePeriod modifies a period with optimistic locking, replacing any
// closing breakdown wholesale.
func (r *CashbookRepo) UpdatePeriod(ctx context.Context, p *cashbook.DrawerPeriod) error {
	data := postgres.StructToMap(p)
	filtered := make(map[string]any, len(r.periodCols))
	for _, col := range r.periodCols {
		if col == "id" || col == "created_at" || col == "created_by" {
			continue
		}
		if col == "version" || col == "updated_at" {
			continue
		}
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.builder().
		Update(periodTable).
		SetMap(filtered).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": p.ID}).
		Where(squirrel.Eq{"version": p.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("drawer period", p.ID)
	}

	delSQL, delArgs, err := r.builder().
		Delete(periodDenominationTable).
		Where(squirrel.Eq{"period_id": p.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete breakdown: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete breakdown: %w", err)
	}

	return r.insertBreakdown(ctx, periodDenominationTable, "period_id", p.ID, p.ClosingBreakdown)
}

// FindOpenByUser retrieves the user's open period.
func (r *CashbookRepo) FindOpenByUser(ctx context.Context, userID id.ID) (*cashbook.DrawerPeriod, error) {
	sql, args, err := r.builder().
		Select(r.periodCols...).
		From(periodTable).
		Where(squirrel.Eq{"responsible_id": userID}).
		Where(squirrel.Eq{"status": string(cashbook.DrawerAbierto)}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("opened_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	p := &cashbook.DrawerPeriod{}
	if err := pgxscan.Get(ctx, r.querier(ctx), p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("open drawer period", userID.String())
		}
		return nil, fmt.Errorf("find open period: %w", err)
	}
	return p, nil
}

// ListPeriods retrieves periods with filtering, newest first.
func (r *CashbookRepo) ListPeriods(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*cashbook.DrawerPeriod], error) {
	result := domain.ListResult[*cashbook.DrawerPeriod]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder().
		Select(r.periodCols...).
		From(periodTable)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
	}

	countQ := r.builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count periods: %w", err)
	}

	q = q.OrderBy("opened_at DESC")
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

	var items []*cashbook.DrawerPeriod
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return result, fmt.Errorf("list periods: %w", err)
	}
	result.Items = items

	return result, nil
}

func (r *CashbookRepo) insertBreakdown(ctx context.Context, table, ownerCol string, ownerID id.ID, counts []cashbook.DenominationCount) error {
	if len(counts) == 0 {
		return nil
	}

	q := r.builder().Insert(table).Columns(ownerCol, "row_no", "denomination", "count")
	for i, c := range counts {
		q = q.Values(ownerID, i+1, c.Denomination, c.Count)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert breakdown: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert breakdown: %w", err)
	}
	return nil
}

func (r *CashbookRepo) loadBreakdown(ctx context.Context, table, ownerCol string, ownerID id.ID) ([]cashbook.DenominationCount, error) {
	sql, args, err := r.builder().
		Select("denomination", "count").
		From(table).
		Where(squirrel.Eq{ownerCol: ownerID}).
		OrderBy("row_no ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var counts []cashbook.DenominationCount
	if err := pgxscan.Select(ctx, r.querier(ctx), &counts, sql, args...); err != nil {
		return nil, fmt.Errorf("load breakdown: %w", err)
	}
	return counts, nil
}

func (r *CashbookRepo) selectMovements(ctx context.Context, q squirrel.SelectBuilder) ([]*cashbook.Movement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []*cashbook.Movement
	if err := pgxscan.Select(ctx, r.querier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	for _, m := range movements {
		if !m.Method.IsCash() {
			continue
		}
		breakdown, err := r.loadBreakdown(ctx, movementDenominationTable, "movement_id", m.ID)
		if err != nil {
			return nil, err
		}
		m.Breakdown = breakdown
	}
	return movements, nil
}

// Ensure interface compliance.
var _ cashbook.Repository = (*CashbookRepo)(nil)
