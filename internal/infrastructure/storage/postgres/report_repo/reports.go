// Package report_repo provides PostgreSQL implementations for report repositories.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/Essau-dev/PolleriaMontiel/internal/domain/documents/order"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/registers/cashbook"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/reports"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/storage/postgres"
)

// paidStatuses are the order states that count as realized sales.
var paidStatuses = []string{
	string(order.StatusPagado),
	string(order.StatusEntregadoYPagado),
}

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{txManager: txManager}
}

func (r *ReportRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// GetSalesSummary aggregates paid orders over a date range.
func (r *ReportRepo) GetSalesSummary(ctx context.Context, filter reports.SalesSummaryFilter) (*reports.SalesSummary, error) {
	summary := &reports.SalesSummary{
		From: filter.From,
		To:   filter.To,
	}

	totalsQ := r.builder().
		Select(
			"COUNT(*)",
			"COALESCE(SUM(catalog_subtotal), 0)",
			"COALESCE(SUM(ancillary_subtotal), 0)",
			"COALESCE(SUM(discount), 0)",
			"COALESCE(SUM(shipping_cost), 0)",
			"COALESCE(SUM(grand_total), 0)",
		).
		From("doc_order").
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Eq{"status": paidStatuses}).
		Where(squirrel.GtOrEq{"date": filter.From}).
		Where(squirrel.LtOrEq{"date": filter.To})

	if filter.Channel != nil {
		totalsQ = totalsQ.Where(squirrel.Eq{"channel": string(*filter.Channel)})
	}

	sql, args, err := totalsQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build totals query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(
		&summary.OrderCount,
		&summary.CatalogSubtotal,
		&summary.AncillarySubtotal,
		&summary.Discounts,
		&summary.Shipping,
		&summary.GrandTotal,
	); err != nil {
		return nil, fmt.Errorf("sales totals: %w", err)
	}

	methodQ := r.builder().
		Select(
			"payment_method AS method",
			"COUNT(*) AS orders",
			"COALESCE(SUM(grand_total), 0) AS total",
		).
		From("doc_order").
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Eq{"status": paidStatuses}).
		Where(squirrel.GtOrEq{"date": filter.From}).
		Where(squirrel.LtOrEq{"date": filter.To}).
		Where(squirrel.NotEq{"payment_method": nil}).
		GroupBy("payment_method").
		OrderBy("total DESC")

	if filter.Channel != nil {
		methodQ = methodQ.Where(squirrel.Eq{"channel": string(*filter.Channel)})
	}

	sql, args, err = methodQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build method query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &summary.ByMethod, sql, args...); err != nil {
		return nil, fmt.Errorf("sales by method: %w", err)
	}

	return summary, nil
}

// GetTopItems returns the best-selling catalog items by revenue.
func (r *ReportRepo) GetTopItems(ctx context.Context, filter reports.TopItemsFilter) ([]reports.TopItem, error) {
	q := r.builder().
		Select(
			"l.item_kind",
			"l.product_code",
			"l.subproduct_id",
			"MIN(l.description) AS description",
			"SUM(l.quantity)::bigint AS total_weight",
			"COALESCE(SUM(l.subtotal), 0) AS total_revenue",
			"COUNT(*) AS line_count",
		).
		From("doc_order_line l").
		Join("doc_order o ON o.id = l.order_id").
		Where(squirrel.Eq{"o.deletion_mark": false}).
		Where(squirrel.Eq{"o.status": paidStatuses}).
		Where(squirrel.GtOrEq{"o.date": filter.From}).
		Where(squirrel.LtOrEq{"o.date": filter.To}).
		GroupBy("l.item_kind", "l.product_code", "l.subproduct_id").
		OrderBy("total_revenue DESC").
		Limit(uint64(filter.Limit))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []reports.TopItem
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("top items: %w", err)
	}
	return items, nil
}

// GetDrawerVariances lists closed drawer periods in the range.
func (r *ReportRepo) GetDrawerVariances(ctx context.Context, filter reports.DrawerVarianceFilter) ([]reports.DrawerVarianceItem, error) {
	q := r.builder().
		Select(
			"id AS period_id",
			"number",
			"responsible_id",
			"closed_at",
			"closing_theoretical AS theoretical",
			"closing_counted AS counted",
			"variance",
			"status",
		).
		From("reg_drawer_period").
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.NotEq{"closed_at": nil}).
		Where(squirrel.GtOrEq{"closed_at": filter.From}).
		Where(squirrel.LtOrEq{"closed_at": filter.To}).
		OrderBy("closed_at DESC")

	if filter.OnlyWithDifference {
		q = q.Where(squirrel.Eq{"status": string(cashbook.DrawerCerradoDiferencia)})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []reports.DrawerVarianceItem
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("drawer variances: %w", err)
	}
	return items, nil
}

// Ensure interface compliance.
var _ reports.Repository = (*ReportRepo)(nil)
