package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/medpos/inventory/internal/core/domain"
	"github.com/medpos/inventory/internal/port"
)

const mysqlErrDuplicateEntry = 1062

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) CreateRecord(ctx context.Context, rec domain.InventoryRecord) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (id, product_id, location_id, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProductID, rec.LocationID, rec.Quantity, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return port.ErrDuplicateRecord
		}
		return fmt.Errorf("insert inventory record: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetRecord(ctx context.Context, productID, locationID string) (*domain.InventoryRecord, error) {
	return scanRecord(m.db.QueryRowContext(ctx, `
		SELECT id, product_id, location_id, quantity, created_at, updated_at
		FROM inventory WHERE product_id = ? AND location_id = ?`,
		productID, locationID,
	))
}

func (m *MySQLAdapter) GetRecordByID(ctx context.Context, id string) (*domain.InventoryRecord, error) {
	return scanRecord(m.db.QueryRowContext(ctx, `
		SELECT id, product_id, location_id, quantity, created_at, updated_at
		FROM inventory WHERE id = ?`, id,
	))
}

func (m *MySQLAdapter) ListRecords(ctx context.Context, offset, limit int) ([]domain.InventoryRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, product_id, location_id, quantity, created_at, updated_at
		FROM inventory ORDER BY created_at, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list inventory records: %w", err)
	}
	defer rows.Close()

	var recs []domain.InventoryRecord
	for rows.Next() {
		var rec domain.InventoryRecord
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.LocationID, &rec.Quantity, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (m *MySQLAdapter) SetQuantity(ctx context.Context, id string, quantity int) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventory SET quantity = ?, updated_at = NOW() WHERE id = ?`,
		quantity, id,
	)
	if err != nil {
		return false, fmt.Errorf("set quantity: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (m *MySQLAdapter) AdjustQuantity(ctx context.Context, id string, delta int) (bool, error) {
	// The quantity guard makes concurrent adjustments safe without an
	// explicit lock: the row either absorbs the delta or rejects it.
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = quantity + ?, updated_at = NOW()
		WHERE id = ? AND quantity + ? >= 0`,
		delta, id, delta,
	)
	if err != nil {
		return false, fmt.Errorf("adjust quantity: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (m *MySQLAdapter) DeleteRecord(ctx context.Context, id string) (bool, error) {
	result, err := m.db.ExecContext(ctx, `DELETE FROM inventory WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete inventory record: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (m *MySQLAdapter) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count inventory records: %w", err)
	}
	return n, nil
}

func (m *MySQLAdapter) CreateTransfer(ctx context.Context, t domain.StockTransfer) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO stock_transfers (id, business_id, from_location_id, to_location_id, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.BusinessID, t.FromLocationID, t.ToLocationID, string(t.Status), t.Notes,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock transfer: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetTransfer(ctx context.Context, id string) (*domain.StockTransfer, error) {
	return scanTransfer(m.db.QueryRowContext(ctx, `
		SELECT id, business_id, from_location_id, to_location_id, status, notes, created_at, updated_at
		FROM stock_transfers WHERE id = ?`, id,
	))
}

func (m *MySQLAdapter) ListTransfers(ctx context.Context, offset, limit int) ([]domain.StockTransfer, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, business_id, from_location_id, to_location_id, status, notes, created_at, updated_at
		FROM stock_transfers ORDER BY created_at, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list stock transfers: %w", err)
	}
	defer rows.Close()

	var ts []domain.StockTransfer
	for rows.Next() {
		var t domain.StockTransfer
		var status string
		if err := rows.Scan(&t.ID, &t.BusinessID, &t.FromLocationID, &t.ToLocationID, &status, &t.Notes, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock transfer: %w", err)
		}
		t.Status = domain.TransferStatus(status)
		ts = append(ts, t)
	}
	return ts, rows.Err()
}

func (m *MySQLAdapter) UpdateTransfer(ctx context.Context, t domain.StockTransfer) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE stock_transfers
		SET status = ?, notes = ?, from_location_id = ?, to_location_id = ?, updated_at = ?
		WHERE id = ?`,
		string(t.Status), t.Notes, t.FromLocationID, t.ToLocationID, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update stock transfer: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (m *MySQLAdapter) DeleteTransfer(ctx context.Context, id string) (bool, error) {
	// Items go with the transfer via the FK cascade.
	result, err := m.db.ExecContext(ctx, `DELETE FROM stock_transfers WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete stock transfer: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (m *MySQLAdapter) CreateItem(ctx context.Context, item domain.TransferItem) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO stock_transfer_items (id, transfer_id, product_id, quantity, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.TransferID, item.ProductID, item.Quantity, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transfer item: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListItems(ctx context.Context, transferID string) ([]domain.TransferItem, error) {
	return listItems(ctx, m.db, transferID)
}

func (m *MySQLAdapter) CountTransfers(ctx context.Context) (total, pending int, err error) {
	err = m.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(status = 'pending'), 0) FROM stock_transfers`,
	).Scan(&total, &pending)
	if err != nil {
		return 0, 0, fmt.Errorf("count stock transfers: %w", err)
	}
	return total, pending, nil
}

// ExecuteTransfer opens one transaction for a transfer execution, locking the
// transfer row up front. Everything fn does through the TransferTx happens in
// that transaction; an error from fn rolls the whole thing back.
func (m *MySQLAdapter) ExecuteTransfer(ctx context.Context, transferID string, fn func(tx port.TransferTx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	t, err := scanTransfer(tx.QueryRowContext(ctx, `
		SELECT id, business_id, from_location_id, to_location_id, status, notes, created_at, updated_at
		FROM stock_transfers WHERE id = ? FOR UPDATE`, transferID,
	))
	if err != nil {
		return err
	}
	if t == nil {
		return port.ErrTransferNotFound
	}

	if err := fn(&mysqlTransferTx{tx: tx, transfer: *t}); err != nil {
		return err
	}

	return tx.Commit()
}

type mysqlTransferTx struct {
	tx       *sql.Tx
	transfer domain.StockTransfer
}

func (e *mysqlTransferTx) Transfer() domain.StockTransfer {
	return e.transfer
}

func (e *mysqlTransferTx) Items(ctx context.Context) ([]domain.TransferItem, error) {
	return listItems(ctx, e.tx, e.transfer.ID)
}

func (e *mysqlTransferTx) LockRecord(ctx context.Context, productID, locationID string) (*domain.InventoryRecord, error) {
	return scanRecord(e.tx.QueryRowContext(ctx, `
		SELECT id, product_id, location_id, quantity, created_at, updated_at
		FROM inventory WHERE product_id = ? AND location_id = ? FOR UPDATE`,
		productID, locationID,
	))
}

func (e *mysqlTransferTx) DeductQuantity(ctx context.Context, recordID string, quantity int) error {
	result, err := e.tx.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = quantity - ?, updated_at = NOW()
		WHERE id = ? AND quantity >= ?`,
		quantity, recordID, quantity,
	)
	if err != nil {
		return fmt.Errorf("deduct quantity: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Cannot happen after validation under the same row lock.
		return fmt.Errorf("quantity guard rejected deduction on record %s", recordID)
	}
	return nil
}

func (e *mysqlTransferTx) AddQuantity(ctx context.Context, productID, locationID string, quantity int) error {
	_, err := e.tx.ExecContext(ctx, `
		INSERT INTO inventory (id, product_id, location_id, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), updated_at = NOW()`,
		uuid.NewString(), productID, locationID, quantity,
	)
	if err != nil {
		return fmt.Errorf("add quantity: %w", err)
	}
	return nil
}

func (e *mysqlTransferTx) UpdateTransfer(ctx context.Context, t domain.StockTransfer) error {
	_, err := e.tx.ExecContext(ctx, `
		UPDATE stock_transfers
		SET status = ?, notes = ?, from_location_id = ?, to_location_id = ?, updated_at = ?
		WHERE id = ?`,
		string(t.Status), t.Notes, t.FromLocationID, t.ToLocationID, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update stock transfer: %w", err)
	}
	return nil
}

type rowQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listItems(ctx context.Context, q rowQuerier, transferID string) ([]domain.TransferItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, transfer_id, product_id, quantity, created_at
		FROM stock_transfer_items WHERE transfer_id = ? ORDER BY created_at, id`,
		transferID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transfer items: %w", err)
	}
	defer rows.Close()

	var items []domain.TransferItem
	for rows.Next() {
		var item domain.TransferItem
		if err := rows.Scan(&item.ID, &item.TransferID, &item.ProductID, &item.Quantity, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanRecord(row *sql.Row) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := row.Scan(&rec.ID, &rec.ProductID, &rec.LocationID, &rec.Quantity, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory record: %w", err)
	}
	return &rec, nil
}

func scanTransfer(row *sql.Row) (*domain.StockTransfer, error) {
	var t domain.StockTransfer
	var status string
	err := row.Scan(&t.ID, &t.BusinessID, &t.FromLocationID, &t.ToLocationID, &status, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query stock transfer: %w", err)
	}
	t.Status = domain.TransferStatus(status)
	return &t, nil
}
