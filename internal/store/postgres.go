package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const documentColumns = `id, container, kind, media_type, title, description, url, tag,
	latitude, longitude, altitude, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc         Document
		description sql.NullString
		tag         sql.NullString
		lat, lng    sql.NullFloat64
		alt         sql.NullFloat64
	)
	err := row.Scan(
		&doc.ID, &doc.Container, &doc.Kind, &doc.MediaType, &doc.Title,
		&description, &doc.URL, &tag, &lat, &lng, &alt,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	doc.Description = description.String
	doc.Tag = tag.String
	if lat.Valid && lng.Valid {
		doc.Geo = &Geo{Latitude: lat.Float64, Longitude: lng.Float64}
		if alt.Valid {
			altitude := alt.Float64
			doc.Geo.Altitude = &altitude
		}
	}
	return doc, nil
}

// ListDocuments returns documents of kind stored in container. A limit of
// zero or less means no limit.
func (s *PostgresStore) ListDocuments(ctx context.Context, kind, container string, limit int) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE kind=$1 AND container=$2 ORDER BY created_at, id`
	args := []any{kind, container}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	items, err := s.queryDocuments(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) queryDocuments(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	var lat, lng, alt any
	if doc.Geo != nil {
		lat, lng = doc.Geo.Latitude, doc.Geo.Longitude
		if doc.Geo.Altitude != nil {
			alt = *doc.Geo.Altitude
		}
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (id, container, kind, media_type, title, description, url, tag, latitude, longitude, altitude)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10, $11)
		RETURNING `+documentColumns,
		doc.ID, doc.Container, doc.Kind, doc.MediaType, doc.Title, doc.Description, doc.URL, doc.Tag, lat, lng, alt,
	)
	created, err := scanDocument(row)
	if err != nil {
		if isDuplicate(err) {
			return Document{}, fmt.Errorf("create document %s: %w", doc.ID, ErrConflict)
		}
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	return created, nil
}

// SetDocumentContainer moves a document. kind scopes the update the same way
// the listing queries do.
func (s *PostgresStore) SetDocumentContainer(ctx context.Context, id, kind, container string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET container=$3, updated_at=NOW()
		WHERE id=$1 AND kind=$2
	`, id, kind, container)
	if err != nil {
		return fmt.Errorf("set document container: %w", err)
	}
	return requireAffected(result)
}

func (s *PostgresStore) SetDocumentTag(ctx context.Context, id, tag string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET tag=NULLIF($2, ''), updated_at=NOW() WHERE id=$1
	`, id, tag)
	if err != nil {
		return fmt.Errorf("set document tag: %w", err)
	}
	return requireAffected(result)
}

// SearchDocuments is a substring search over title and description.
func (s *PostgresStore) SearchDocuments(ctx context.Context, text string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(strings.TrimSpace(text)) + "%"
	items, err := s.queryDocuments(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE title ILIKE $1 OR description ILIKE $1
		ORDER BY updated_at DESC
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListAllDocuments(ctx context.Context) ([]Document, error) {
	items, err := s.queryDocuments(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list all documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListFolders(ctx context.Context) ([]Folder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, created_at, updated_at FROM folders ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	items := make([]Folder, 0)
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.Title, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetFolder(ctx context.Context, id string) (Folder, error) {
	var f Folder
	err := s.db.QueryRowContext(ctx, `SELECT id, title, created_at, updated_at FROM folders WHERE id=$1`, id).
		Scan(&f.ID, &f.Title, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return Folder{}, err
	}
	return f, nil
}

func (s *PostgresStore) CreateFolder(ctx context.Context, folder Folder) (Folder, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO folders (id, title) VALUES ($1, $2)
		RETURNING id, title, created_at, updated_at
	`, folder.ID, folder.Title).Scan(&folder.ID, &folder.Title, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return Folder{}, fmt.Errorf("create folder %s: %w", folder.ID, ErrConflict)
		}
		return Folder{}, fmt.Errorf("create folder: %w", err)
	}
	return folder, nil
}

const pairingColumns = `id, folder_id, slot1, slot2, position, created_at, updated_at`

func scanPairingRow(row rowScanner) (PairingRow, error) {
	var (
		item         PairingRow
		slot1, slot2 []byte
	)
	if err := row.Scan(&item.ID, &item.FolderID, &slot1, &slot2, &item.Position, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return PairingRow{}, err
	}
	var err error
	if item.Slot1, err = decodeSlot(slot1); err != nil {
		return PairingRow{}, fmt.Errorf("decode slot1 of %s: %w", item.ID, err)
	}
	if item.Slot2, err = decodeSlot(slot2); err != nil {
		return PairingRow{}, fmt.Errorf("decode slot2 of %s: %w", item.ID, err)
	}
	return item, nil
}

func decodeSlot(raw []byte) (Slot, error) {
	var slot Slot
	if len(raw) == 0 {
		return slot, nil
	}
	if err := json.Unmarshal(raw, &slot); err != nil {
		return Slot{}, err
	}
	return slot, nil
}

func (s *PostgresStore) ListPairingRows(ctx context.Context, folderID string) ([]PairingRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+pairingColumns+` FROM pairing_rows WHERE folder_id=$1 ORDER BY position, created_at`, folderID)
	if err != nil {
		return nil, fmt.Errorf("list pairing rows: %w", err)
	}
	defer rows.Close()

	items := make([]PairingRow, 0)
	for rows.Next() {
		item, err := scanPairingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pairing row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetPairingRow(ctx context.Context, id string) (PairingRow, error) {
	return scanPairingRow(s.db.QueryRowContext(ctx, `SELECT `+pairingColumns+` FROM pairing_rows WHERE id=$1`, id))
}

func (s *PostgresStore) CreatePairingRow(ctx context.Context, row PairingRow) (PairingRow, error) {
	created, err := scanPairingRow(s.db.QueryRowContext(ctx, `
		INSERT INTO pairing_rows (id, folder_id, position)
		VALUES ($1, $2, COALESCE((SELECT MAX(position) + 1 FROM pairing_rows WHERE folder_id=$2), 0))
		RETURNING `+pairingColumns,
		row.ID, row.FolderID,
	))
	if err != nil {
		if isForeignKey(err) {
			return PairingRow{}, fmt.Errorf("create pairing row: folder %s: %w", row.FolderID, sql.ErrNoRows)
		}
		return PairingRow{}, fmt.Errorf("create pairing row: %w", err)
	}
	return created, nil
}

func slotColumn(slot int) (string, error) {
	switch slot {
	case SlotBefore:
		return "slot1", nil
	case SlotAfter:
		return "slot2", nil
	default:
		return "", ErrInvalidSlot
	}
}

func (s *PostgresStore) SetPairingSlot(ctx context.Context, rowID string, slot int, payload Slot) error {
	column, err := slotColumn(slot)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode slot payload: %w", err)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE pairing_rows SET `+column+`=$2::jsonb, updated_at=NOW() WHERE id=$1`,
		rowID, string(encoded),
	)
	if err != nil {
		return fmt.Errorf("set pairing slot: %w", err)
	}
	return requireAffected(result)
}

func (s *PostgresStore) ClearPairingSlot(ctx context.Context, rowID string, slot int) error {
	column, err := slotColumn(slot)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE pairing_rows SET `+column+`=NULL, updated_at=NOW() WHERE id=$1`, rowID)
	if err != nil {
		return fmt.Errorf("clear pairing slot: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
