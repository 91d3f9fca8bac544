package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
)

type orderRepository struct {
	q querier
}

type historyRepository struct {
	q querier
}

const orderColumns = `id, status, customer_name, customer_email, customer_phone, package_name,
       base_price, add_ons, subtotal, tax_amount, total_amount, jurisdiction, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o      model.Order
		addOns []byte
	)
	err := row.Scan(&o.ID, &o.Status, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &o.PackageName,
		&o.BasePrice, &addOns, &o.Subtotal, &o.TaxAmount, &o.TotalAmount, &o.Jurisdiction, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(addOns) > 0 {
		if err := json.Unmarshal(addOns, &o.AddOns); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	const query = `INSERT INTO orders (status, customer_name, customer_email, customer_phone, package_name,
                   base_price, add_ons, subtotal, tax_amount, total_amount, jurisdiction)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
                   RETURNING id, created_at, updated_at`
	addOns, err := json.Marshal(nonNilAddOns(order.AddOns))
	if err != nil {
		return err
	}
	err = r.q.QueryRow(ctx, query, order.Status, order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.PackageName, order.BasePrice, string(addOns), order.Subtotal, order.TaxAmount, order.TotalAmount,
		order.Jurisdiction).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	return dbError(err, "insert order")
}

func nonNilAddOns(addOns []model.AddOn) []model.AddOn {
	if addOns == nil {
		return []model.AddOn{}
	}
	return addOns
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id int64) (*model.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id)
}

func (r *orderRepository) get(ctx context.Context, query string, id int64) (*model.Order, error) {
	order, err := scanOrder(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NotFoundf("order %d not found", id)
		}
		return nil, dbError(err, "select order")
	}
	return order, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	const query = `UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2`
	tag, err := r.q.Exec(ctx, query, status, id)
	if err != nil {
		return dbError(err, "update order status")
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.NotFoundf("order %d not found", id)
	}
	return nil
}

func (r *orderRepository) UpdateTotals(ctx context.Context, id int64, taxAmount, totalAmount int64) error {
	const query = `UPDATE orders SET tax_amount=$1, total_amount=$2, updated_at=NOW() WHERE id=$3`
	tag, err := r.q.Exec(ctx, query, taxAmount, totalAmount, id)
	if err != nil {
		return dbError(err, "update order totals")
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.NotFoundf("order %d not found", id)
	}
	return nil
}

func (r *historyRepository) Append(ctx context.Context, entry *model.StatusHistoryEntry) error {
	const query = `INSERT INTO order_status_history (order_id, previous_status, new_status, actor_id, notes)
                   VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query, entry.OrderID, entry.PreviousStatus, entry.NewStatus, entry.ActorID, entry.Notes).
		Scan(&entry.ID, &entry.CreatedAt)
	return dbError(err, "insert status history")
}

func (r *historyRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.StatusHistoryEntry, error) {
	const query = `SELECT id, order_id, previous_status, new_status, actor_id, notes, created_at
                   FROM order_status_history WHERE order_id=$1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, dbError(err, "select status history")
	}
	defer rows.Close()

	var result []model.StatusHistoryEntry
	for rows.Next() {
		var e model.StatusHistoryEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.PreviousStatus, &e.NewStatus, &e.ActorID, &e.Notes, &e.CreatedAt); err != nil {
			return nil, dbError(err, "scan status history")
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "iterate status history")
	}
	return result, nil
}
