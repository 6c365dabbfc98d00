package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// AddAttachment links a file path to a transaction. The path is stored in
// absolute form; the file itself is never read, copied or checked.
func (s *SQLiteStorage) AddAttachment(ctx context.Context, transactionID int64, path, mimeType string) (*model.Attachment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(transactionID, "transaction_id"); err != nil {
		return nil, err
	}
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve attachment path: %w", err)
	}

	ok, err := exists(ctx, s.db, `SELECT 1 FROM transactions WHERE id = ?`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check transaction: %w", err)
	}
	if !ok {
		return nil, common.NotFoundf("transaction %d", transactionID)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attachments (transaction_id, path, mime_type) VALUES (?, ?, ?)`,
		transactionID, abs, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to add attachment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment id: %w", err)
	}

	return &model.Attachment{ID: id, TransactionID: transactionID, Path: abs, MimeType: mimeType}, nil
}

// ListAttachments returns the attachments of a transaction in insertion order.
func (s *SQLiteStorage) ListAttachments(ctx context.Context, transactionID int64) ([]model.Attachment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, path, mime_type, added_at
		FROM attachments WHERE transaction_id = ?
		ORDER BY id ASC`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	attachments := []model.Attachment{}
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.ID, &a.TransactionID, &a.Path, &a.MimeType, &a.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}
