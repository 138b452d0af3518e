package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docintake/internal/intake"
	"docintake/internal/services"
)

const documentColumns = "id, name, content_hash, text, fingerprint, owner, department, path, category, version, parent_id, uploaded_at"

func scanDocument(scanner interface{ Scan(dest ...any) error }) (intake.StoredDocument, error) {
	var (
		doc         intake.StoredDocument
		text        sql.NullString
		fingerprint sql.NullString
		owner       sql.NullString
		department  sql.NullString
		path        sql.NullString
		category    sql.NullString
		parentID    sql.NullString
		uploadedRaw sql.NullString
	)
	if err := scanner.Scan(
		&doc.ID,
		&doc.Name,
		&doc.ContentHash,
		&text,
		&fingerprint,
		&owner,
		&department,
		&path,
		&category,
		&doc.Version,
		&parentID,
		&uploadedRaw,
	); err != nil {
		return intake.StoredDocument{}, err
	}
	doc.Text = text.String
	doc.Fingerprint = fingerprint.String
	doc.Owner = owner.String
	doc.Department = department.String
	doc.Path = path.String
	doc.Category = category.String
	doc.ParentID = parentID.String
	doc.UploadedAt = parseTime(uploadedRaw)
	return doc, nil
}

// CreateDocument inserts doc, assigning an ID, upload time, and version when
// unset. The stored values are written back into doc.
func (s *Store) CreateDocument(ctx context.Context, doc *intake.StoredDocument) error {
	if doc == nil {
		return errors.New("document required")
	}
	if strings.TrimSpace(doc.ContentHash) == "" {
		return services.Wrap(services.ErrValidation, "store", "create document", "content hash required", nil)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := s.now()
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = now
	}
	if doc.Version <= 0 {
		doc.Version = 1
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO documents (
            id, name, content_hash, text, fingerprint, owner, department,
            path, category, version, parent_id, uploaded_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.Name,
		doc.ContentHash,
		nullableString(doc.Text),
		nullableString(doc.Fingerprint),
		nullableString(doc.Owner),
		nullableString(doc.Department),
		nullableString(doc.Path),
		nullableString(doc.Category),
		doc.Version,
		nullableString(doc.ParentID),
		formatTime(doc.UploadedAt),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// CreateVersion registers doc as a new version of parentID.
func (s *Store) CreateVersion(ctx context.Context, parentID string, doc *intake.StoredDocument) error {
	parent, err := s.GetDocument(ctx, parentID)
	if err != nil {
		return err
	}
	doc.ParentID = parent.ID
	doc.Version = parent.Version + 1
	if doc.Path == "" {
		doc.Path = parent.Path
	}
	return s.CreateDocument(ctx, doc)
}

// GetDocument fetches a document by identifier.
func (s *Store) GetDocument(ctx context.Context, id string) (intake.StoredDocument, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return intake.StoredDocument{}, services.Wrap(services.ErrNotFound, "store", "get document", "document "+id+" not found", nil)
	}
	if err != nil {
		return intake.StoredDocument{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns every document ordered by upload time.
func (s *Store) ListDocuments(ctx context.Context) ([]intake.StoredDocument, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY uploaded_at, id")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []intake.StoredDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Candidates returns the duplicate-detection corpus.
func (s *Store) Candidates(ctx context.Context) ([]intake.StoredDocument, error) {
	return s.ListDocuments(ctx)
}

// UpdateDocument rewrites the mutable fields of an existing document.
func (s *Store) UpdateDocument(ctx context.Context, doc intake.StoredDocument) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE documents SET
            name = ?, text = ?, fingerprint = ?, owner = ?, department = ?,
            path = ?, category = ?, updated_at = ?
        WHERE id = ?`,
		doc.Name,
		nullableString(doc.Text),
		nullableString(doc.Fingerprint),
		nullableString(doc.Owner),
		nullableString(doc.Department),
		nullableString(doc.Path),
		nullableString(doc.Category),
		formatTime(s.now()),
		doc.ID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return expectOneRow(res, "update document", doc.ID)
}

// DeleteDocument removes a document. Runs referencing it are kept for audit.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return expectOneRow(res, "delete document", id)
}

func expectOneRow(res interface{ RowsAffected() (int64, error) }, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", op, "document "+id+" not found", nil)
	}
	return nil
}
