package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/documents/order"
	"github.com/Essau-dev/PolleriaMontiel/internal/infrastructure/storage/postgres"
	"github.com/Essau-dev/PolleriaMontiel/pkg/numerator"
)

const (
	orderTable          = "doc_order"
	orderLineTable      = "doc_order_line"
	orderAncillaryTable = "doc_order_ancillary"
)

// orderFolioConfig formats folios as PED-000001. Orders are internal
// documents, so the cached strategy's possible gaps are acceptable.
var orderFolioConfig = numerator.Config{
	Prefix:      "PED",
	PadWidth:    6,
	ResetPeriod: "never",
}

// orderLineRow flattens the line item reference into columns. The
// tagged union maps to item_kind plus one of product_code /
// subproduct_id, mirroring the price rule storage.
type orderLineRow struct {
	OrderID        id.ID        `db:"order_id"`
	LineID         id.ID        `db:"line_id"`
	LineNo         int          `db:"line_no"`
	ItemKind       string       `db:"item_kind"`
	ProductCode    *string      `db:"product_code"`
	SubproductID   *id.ID       `db:"subproduct_id"`
	ModificationID *id.ID       `db:"modification_id"`
	Description    string       `db:"description"`
	Quantity       types.Weight `db:"quantity"`
	UnitOfMeasure  string       `db:"unit_of_measure"`
	UnitPrice      types.Money  `db:"unit_price"`
	Subtotal       types.Money  `db:"subtotal"`
	Notes          *string      `db:"notes"`
}

func (row *orderLineRow) toLine() order.Line {
	l := order.Line{
		LineID:         row.LineID,
		LineNo:         row.LineNo,
		ModificationID: row.ModificationID,
		Description:    row.Description,
		Quantity:       row.Quantity,
		UnitOfMeasure:  row.UnitOfMeasure,
		UnitPrice:      row.UnitPrice,
		Subtotal:       row.Subtotal,
		Notes:          row.Notes,
	}

	switch product.ItemKind(row.ItemKind) {
	case product.KindProduct:
		if row.ProductCode != nil {
			l.Item = product.RefProduct(*row.ProductCode)
		}
	case product.KindSubproduct:
		if row.SubproductID != nil {
			l.Item = product.RefSubproduct(*row.SubproductID)
		}
	}
	return l
}

func lineToMap(orderID id.ID, l order.Line) map[string]any {
	m := map[string]any{
		"order_id":        orderID,
		"line_id":         l.LineID,
		"line_no":         l.LineNo,
		"item_kind":       string(l.Item.Kind),
		"product_code":    nil,
		"subproduct_id":   nil,
		"modification_id": l.ModificationID,
		"description":     l.Description,
		"quantity":        l.Quantity,
		"unit_of_measure": l.UnitOfMeasure,
		"unit_price":      l.UnitPrice,
		"subtotal":        l.Subtotal,
		"notes":           l.Notes,
	}
	if l.Item.IsProduct() {
		m["product_code"] = l.Item.ProductCode
	} else if l.Item.IsSubproduct() {
		m["subproduct_id"] = l.Item.SubproductID
	}
	return m
}

var orderLineCols = []string{
	"order_id", "line_id", "line_no", "item_kind", "product_code",
	"subproduct_id", "modification_id", "description", "quantity",
	"unit_of_measure", "unit_price", "subtotal", "notes",
}

// orderAncillaryRow carries the order_id foreign key next to the
// ancillary line fields.
type orderAncillaryRow struct {
	OrderID id.ID `db:"order_id"`
	order.AncillaryLine
}

var orderAncillaryCols = []string{
	"order_id", "line_id", "line_no", "name", "quantity",
	"unit_of_measure", "purchase_cost", "sale_price", "commission",
	"subtotal", "notes",
}

// OrderRepo implements order.Repository.
type OrderRepo struct {
	*BaseDocumentRepo[*order.Order]
	folios *numerator.Service
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txManager *postgres.TxManager) *OrderRepo {
	r := &OrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			orderTable,
			postgres.ExtractDBColumns[order.Order](),
			func() *order.Order { return &order.Order{} },
		),
	}
	r.folios = numerator.NewWithSource(func(ctx context.Context) numerator.Querier {
		return r.Querier(ctx)
	})
	return r
}

// SaveLines replaces the catalog lines of the order.
func (r *OrderRepo) SaveLines(ctx context.Context, orderID id.ID, lines []order.Line) error {
	querier := r.Querier(ctx)

	delSQL, delArgs, err := r.Builder().
		Delete(orderLineTable).
		Where(squirrel.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete lines: %w", err)
	}
	if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete order lines: %w", err)
	}

	for _, line := range lines {
		sql, args, err := r.Builder().
			Insert(orderLineTable).
			SetMap(lineToMap(orderID, line)).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert line: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

// SaveAncillaries replaces the ancillary lines of the order.
func (r *OrderRepo) SaveAncillaries(ctx context.Context, orderID id.ID, lines []order.AncillaryLine) error {
	querier := r.Querier(ctx)

	delSQL, delArgs, err := r.Builder().
		Delete(orderAncillaryTable).
		Where(squirrel.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete ancillaries: %w", err)
	}
	if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete order ancillaries: %w", err)
	}

	for _, line := range lines {
		data := postgres.StructToMap(&line)
		data["order_id"] = orderID

		filtered := make(map[string]any, len(orderAncillaryCols))
		for _, col := range orderAncillaryCols {
			if val, ok := data[col]; ok {
				filtered[col] = val
			}
		}

		sql, args, err := r.Builder().
			Insert(orderAncillaryTable).
			SetMap(filtered).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert ancillary: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert order ancillary: %w", err)
		}
	}
	return nil
}

// GetLines retrieves catalog lines in line order.
func (r *OrderRepo) GetLines(ctx context.Context, orderID id.ID) ([]order.Line, error) {
	sql, args, err := r.Builder().
		Select(orderLineCols...).
		From(orderLineTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("line_no ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*orderLineRow
	if err := pgxscan.Select(ctx, r.Querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select order lines: %w", err)
	}

	lines := make([]order.Line, len(rows))
	for i, row := range rows {
		lines[i] = row.toLine()
	}
	return lines, nil
}

// GetAncillaries retrieves ancillary lines in insertion order.
func (r *OrderRepo) GetAncillaries(ctx context.Context, orderID id.ID) ([]order.AncillaryLine, error) {
	sql, args, err := r.Builder().
		Select(orderAncillaryCols...).
		From(orderAncillaryTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("line_no ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*orderAncillaryRow
	if err := pgxscan.Select(ctx, r.Querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select order ancillaries: %w", err)
	}

	lines := make([]order.AncillaryLine, len(rows))
	for i, row := range rows {
		lines[i] = row.AncillaryLine
	}
	return lines, nil
}

// List retrieves orders with order-specific filtering.
func (r *OrderRepo) List(ctx context.Context, filter order.ListFilter) (domain.ListResult[*order.Order], error) {
	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	if filter.Channel != nil {
		q = q.Where(squirrel.Eq{"channel": string(*filter.Channel)})
	}
	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.CourierID != nil {
		q = q.Where(squirrel.Eq{"courier_id": *filter.CourierID})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}

	return r.ListQuery(ctx, q, filter.ListFilter)
}

// NextFolio issues the next order folio.
func (r *OrderRepo) NextFolio(ctx context.Context) (string, error) {
	folio, err := r.folios.GetNextNumber(ctx, orderFolioConfig,
		&numerator.Options{Strategy: numerator.StrategyCached}, time.Now())
	if err != nil {
		return "", fmt.Errorf("next order folio: %w", err)
	}
	return folio, nil
}

// Ensure interface compliance.
var _ order.Repository = (*OrderRepo)(nil)
