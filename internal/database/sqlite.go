package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"caseline/internal/contacts"
	"caseline/internal/model"
	"caseline/internal/remote"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// inChunkSize keeps IN (...) lists safely under SQLite's bound parameter
// limit.
const inChunkSize = 500

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens a SQLite database at path. The schema is not
// touched; callers that want migration should go through the factory.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db, path: ""}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Wait for concurrent writers instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Contact operations

func (s *SQLiteDatabase) FindContact(org, uuid string) (*model.Contact, error) {
	row := s.db.QueryRow(`
		SELECT id, org_id, uuid, name, language, urns, fields, is_active, is_stub, created_at
		FROM contacts WHERE org_id = ? AND uuid = ?`, org, uuid)

	contact, err := scanContact(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}

	if err := s.attachMemberships([]*model.Contact{contact}); err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *SQLiteDatabase) FindContactsByUUID(org string, uuids []string) ([]*model.Contact, error) {
	var found []*model.Contact

	for _, part := range chunk(uuids, inChunkSize) {
		args := make([]any, 0, len(part)+1)
		args = append(args, org)
		for _, u := range part {
			args = append(args, u)
		}

		rows, err := s.db.Query(`
			SELECT id, org_id, uuid, name, language, urns, fields, is_active, is_stub, created_at
			FROM contacts WHERE org_id = ? AND uuid IN (`+placeholders(len(part))+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query contacts: %w", err)
		}

		for rows.Next() {
			contact, err := scanContact(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan contact: %w", err)
			}
			found = append(found, contact)
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("failed to read contacts: %w", err)
		}
	}

	if err := s.attachMemberships(found); err != nil {
		return nil, err
	}
	return found, nil
}

func (s *SQLiteDatabase) CreateContact(contact *model.Contact) error {
	fields, err := marshalFields(contact.Fields)
	if err != nil {
		return err
	}
	urns, err := marshalURNs(contact.URNs)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO contacts (id, org_id, uuid, name, language, urns, fields, is_active, is_stub, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		contact.ID, contact.OrgID, contact.UUID, contact.Name, contact.Language,
		urns, fields, contact.IsActive, contact.IsStub, formatTime(contact.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}

	if err := insertMemberships(tx, contact); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit contact: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) UpdateContact(contact *model.Contact) error {
	fields, err := marshalFields(contact.Fields)
	if err != nil {
		return err
	}
	urns, err := marshalURNs(contact.URNs)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE contacts SET name = ?, language = ?, urns = ?, fields = ?, is_active = ?, is_stub = ?
		WHERE id = ?`,
		contact.Name, contact.Language, urns, fields, contact.IsActive, contact.IsStub, contact.ID)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM contact_groups WHERE contact_id = ?", contact.ID); err != nil {
		return fmt.Errorf("failed to clear memberships: %w", err)
	}
	if err := insertMemberships(tx, contact); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit contact: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeactivateContacts(ids []string) error {
	for _, part := range chunk(ids, inChunkSize) {
		args := make([]any, 0, len(part))
		for _, id := range part {
			args = append(args, id)
		}
		_, err := s.db.Exec(
			"UPDATE contacts SET is_active = 0 WHERE id IN ("+placeholders(len(part))+")", args...)
		if err != nil {
			return fmt.Errorf("failed to deactivate contacts: %w", err)
		}
	}
	return nil
}

func (s *SQLiteDatabase) DeactivateContactsByUUID(org string, uuids []string) (int, error) {
	flipped := 0
	for _, part := range chunk(uuids, inChunkSize) {
		args := make([]any, 0, len(part)+1)
		args = append(args, org)
		for _, u := range part {
			args = append(args, u)
		}
		res, err := s.db.Exec(`
			UPDATE contacts SET is_active = 0
			WHERE org_id = ? AND is_active = 1 AND uuid IN (`+placeholders(len(part))+`)`, args...)
		if err != nil {
			return flipped, fmt.Errorf("failed to deactivate contacts: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return flipped, fmt.Errorf("failed to count deactivated contacts: %w", err)
		}
		flipped += int(n)
	}
	return flipped, nil
}

func (s *SQLiteDatabase) ListContacts(org, afterID string, limit int) ([]*model.Contact, error) {
	rows, err := s.db.Query(`
		SELECT id, org_id, uuid, name, language, urns, fields, is_active, is_stub, created_at
		FROM contacts
		WHERE org_id = ? AND is_active = 1 AND is_stub = 0 AND id > ?
		ORDER BY id LIMIT ?`, org, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	var page []*model.Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		page = append(page, contact)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("failed to read contacts: %w", err)
	}

	if err := s.attachMemberships(page); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *SQLiteDatabase) CountContacts(org string) (int, int, error) {
	var total, stubs int
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(is_stub), 0)
		FROM contacts WHERE org_id = ? AND is_active = 1`, org).Scan(&total, &stubs)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return total, stubs, nil
}

// attachMemberships loads the group rows for the given contacts and fills
// their live and suspended sets in stored order.
func (s *SQLiteDatabase) attachMemberships(list []*model.Contact) error {
	if len(list) == 0 {
		return nil
	}

	byID := make(map[string]*model.Contact, len(list))
	ids := make([]string, 0, len(list))
	for _, c := range list {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	for _, part := range chunk(ids, inChunkSize) {
		args := make([]any, 0, len(part))
		for _, id := range part {
			args = append(args, id)
		}

		rows, err := s.db.Query(`
			SELECT contact_id, uuid, name, suspended
			FROM contact_groups WHERE contact_id IN (`+placeholders(len(part))+`)
			ORDER BY contact_id, position`, args...)
		if err != nil {
			return fmt.Errorf("failed to query memberships: %w", err)
		}

		for rows.Next() {
			var contactID, uuid, name string
			var suspended bool
			if err := rows.Scan(&contactID, &uuid, &name, &suspended); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan membership: %w", err)
			}
			contact := byID[contactID]
			group := remote.Group{UUID: uuid, Name: name}
			if suspended {
				contact.SuspendedGroups = append(contact.SuspendedGroups, group)
			} else {
				contact.Groups = append(contact.Groups, group)
			}
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("failed to read memberships: %w", err)
		}
	}
	return nil
}

// insertMemberships writes the contact's live and suspended group sets.
func insertMemberships(tx *sql.Tx, contact *model.Contact) error {
	position := 0
	write := func(groups []remote.Group, suspended bool) error {
		for _, g := range groups {
			_, err := tx.Exec(`
				INSERT INTO contact_groups (contact_id, uuid, name, suspended, position)
				VALUES (?, ?, ?, ?, ?)`,
				contact.ID, g.UUID, g.Name, suspended, position)
			if err != nil {
				return fmt.Errorf("failed to insert membership: %w", err)
			}
			position++
		}
		return nil
	}

	if err := write(contact.Groups, false); err != nil {
		return err
	}
	return write(contact.SuspendedGroups, true)
}

// Group operations

func (s *SQLiteDatabase) GetGroups(org string) ([]*model.Group, error) {
	rows, err := s.db.Query(`
		SELECT id, org_id, uuid, name, count, is_active, is_visible, suspend_from, created_at
		FROM groups WHERE org_id = ? AND is_active = 1 ORDER BY name`, org)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*model.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

func (s *SQLiteDatabase) FindGroup(org, uuid string) (*model.Group, error) {
	row := s.db.QueryRow(`
		SELECT id, org_id, uuid, name, count, is_active, is_visible, suspend_from, created_at
		FROM groups WHERE org_id = ? AND uuid = ?`, org, uuid)

	group, err := scanGroup(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find group: %w", err)
	}
	return group, nil
}

func (s *SQLiteDatabase) CreateGroup(group *model.Group) error {
	_, err := s.db.Exec(`
		INSERT INTO groups (id, org_id, uuid, name, count, is_active, is_visible, suspend_from, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.OrgID, group.UUID, group.Name, group.Count,
		group.IsActive, group.IsVisible, group.SuspendFrom, formatTime(group.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) UpdateGroup(group *model.Group) error {
	_, err := s.db.Exec(`
		UPDATE groups SET name = ?, count = ?, is_active = ?, is_visible = ?, suspend_from = ?
		WHERE id = ?`,
		group.Name, group.Count, group.IsActive, group.IsVisible, group.SuspendFrom, group.ID)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeactivateGroupsByUUID(org string, uuids []string) (int, error) {
	flipped := 0
	for _, part := range chunk(uuids, inChunkSize) {
		args := make([]any, 0, len(part)+1)
		args = append(args, org)
		for _, u := range part {
			args = append(args, u)
		}
		res, err := s.db.Exec(`
			UPDATE groups SET is_active = 0
			WHERE org_id = ? AND is_active = 1 AND uuid IN (`+placeholders(len(part))+`)`, args...)
		if err != nil {
			return flipped, fmt.Errorf("failed to deactivate groups: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return flipped, fmt.Errorf("failed to count deactivated groups: %w", err)
		}
		flipped += int(n)
	}
	return flipped, nil
}

// Field operations

func (s *SQLiteDatabase) GetFields(org string) ([]*model.Field, error) {
	rows, err := s.db.Query(`
		SELECT id, org_id, key, label, value_type, is_active, is_visible
		FROM fields WHERE org_id = ? AND is_active = 1 ORDER BY key`, org)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	defer rows.Close()

	var fields []*model.Field
	for rows.Next() {
		field, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		fields = append(fields, field)
	}
	return fields, rows.Err()
}

func (s *SQLiteDatabase) FindField(org, key string) (*model.Field, error) {
	row := s.db.QueryRow(`
		SELECT id, org_id, key, label, value_type, is_active, is_visible
		FROM fields WHERE org_id = ? AND key = ?`, org, key)

	field, err := scanField(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find field: %w", err)
	}
	return field, nil
}

func (s *SQLiteDatabase) CreateField(field *model.Field) error {
	_, err := s.db.Exec(`
		INSERT INTO fields (id, org_id, key, label, value_type, is_active, is_visible)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		field.ID, field.OrgID, field.Key, field.Label, field.ValueType,
		field.IsActive, field.IsVisible)
	if err != nil {
		return fmt.Errorf("failed to insert field: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) UpdateField(field *model.Field) error {
	_, err := s.db.Exec(`
		UPDATE fields SET label = ?, value_type = ?, is_active = ?, is_visible = ?
		WHERE id = ?`,
		field.Label, field.ValueType, field.IsActive, field.IsVisible, field.ID)
	if err != nil {
		return fmt.Errorf("failed to update field: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeactivateFieldsByKey(org string, keys []string) (int, error) {
	flipped := 0
	for _, part := range chunk(keys, inChunkSize) {
		args := make([]any, 0, len(part)+1)
		args = append(args, org)
		for _, k := range part {
			args = append(args, k)
		}
		res, err := s.db.Exec(`
			UPDATE fields SET is_active = 0
			WHERE org_id = ? AND is_active = 1 AND key IN (`+placeholders(len(part))+`)`, args...)
		if err != nil {
			return flipped, fmt.Errorf("failed to deactivate fields: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return flipped, fmt.Errorf("failed to count deactivated fields: %w", err)
		}
		flipped += int(n)
	}
	return flipped, nil
}

// Sync run operations

func (s *SQLiteDatabase) CreateSyncRun(run *model.SyncRun) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_runs (id, org_id, kind, started_at, finished_at, created, updated, deleted, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.OrgID, run.Kind, formatTime(run.StartedAt), nullableTime(run.FinishedAt),
		run.Created, run.Updated, run.Deleted, run.Status, run.Error)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) UpdateSyncRun(run *model.SyncRun) error {
	_, err := s.db.Exec(`
		UPDATE sync_runs SET finished_at = ?, created = ?, updated = ?, deleted = ?, status = ?, error = ?
		WHERE id = ?`,
		nullableTime(run.FinishedAt), run.Created, run.Updated, run.Deleted,
		run.Status, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListSyncRuns(org, kind string, limit int) ([]*model.SyncRun, error) {
	query := `
		SELECT id, org_id, kind, started_at, finished_at, created, updated, deleted, status, error
		FROM sync_runs WHERE org_id = ?`
	args := []any{org}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY started_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteDatabase) LatestSyncRun(org, kind string) (*model.SyncRun, error) {
	row := s.db.QueryRow(`
		SELECT id, org_id, kind, started_at, finished_at, created, updated, deleted, status, error
		FROM sync_runs WHERE org_id = ? AND kind = ?
		ORDER BY started_at DESC, rowid DESC LIMIT 1`, org, kind)

	run, err := scanSyncRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sync run: %w", err)
	}
	return run, nil
}

// Export operations

func (s *SQLiteDatabase) CreateExport(export *model.Export) error {
	_, err := s.db.Exec(`
		INSERT INTO exports (id, org_id, key, size, checksum, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		export.ID, export.OrgID, export.Key, export.Size, export.Checksum,
		export.Status, formatTime(export.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert export: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) UpdateExportStatus(id, status string) error {
	_, err := s.db.Exec("UPDATE exports SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update export status: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindExport(org, id string) (*model.Export, error) {
	row := s.db.QueryRow(`
		SELECT id, org_id, key, size, checksum, status, created_at
		FROM exports WHERE org_id = ? AND id = ?`, org, id)

	export, err := scanExport(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find export: %w", err)
	}
	return export, nil
}

func (s *SQLiteDatabase) ListExports(org string, limit int) ([]*model.Export, error) {
	rows, err := s.db.Query(`
		SELECT id, org_id, key, size, checksum, status, created_at
		FROM exports WHERE org_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, org, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer rows.Close()

	var exports []*model.Export
	for rows.Next() {
		export, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		exports = append(exports, export)
	}
	return exports, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanContact(row scanner) (*model.Contact, error) {
	var c model.Contact
	var urns, fields, createdAt string
	if err := row.Scan(&c.ID, &c.OrgID, &c.UUID, &c.Name, &c.Language, &urns, &fields,
		&c.IsActive, &c.IsStub, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if c.URNs, err = unmarshalURNs(urns); err != nil {
		return nil, err
	}
	if c.Fields, err = unmarshalFields(fields); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanGroup(row scanner) (*model.Group, error) {
	var g model.Group
	var createdAt string
	if err := row.Scan(&g.ID, &g.OrgID, &g.UUID, &g.Name, &g.Count,
		&g.IsActive, &g.IsVisible, &g.SuspendFrom, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func scanField(row scanner) (*model.Field, error) {
	var f model.Field
	if err := row.Scan(&f.ID, &f.OrgID, &f.Key, &f.Label, &f.ValueType,
		&f.IsActive, &f.IsVisible); err != nil {
		return nil, err
	}
	return &f, nil
}

func scanSyncRun(row scanner) (*model.SyncRun, error) {
	var r model.SyncRun
	var startedAt string
	var finishedAt sql.NullString
	if err := row.Scan(&r.ID, &r.OrgID, &r.Kind, &startedAt, &finishedAt,
		&r.Created, &r.Updated, &r.Deleted, &r.Status, &r.Error); err != nil {
		return nil, err
	}

	var err error
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		if r.FinishedAt, err = parseTime(finishedAt.String); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

func scanExport(row scanner) (*model.Export, error) {
	var e model.Export
	var createdAt string
	if err := row.Scan(&e.ID, &e.OrgID, &e.Key, &e.Size, &e.Checksum,
		&e.Status, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func marshalFields(fields map[string]string) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(data), nil
}

func unmarshalFields(data string) (map[string]string, error) {
	fields := make(map[string]string)
	if data == "" {
		return fields, nil
	}
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	return fields, nil
}

func marshalURNs(urns []string) (string, error) {
	if len(urns) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(urns)
	if err != nil {
		return "", fmt.Errorf("failed to encode urns: %w", err)
	}
	return string(data), nil
}

func unmarshalURNs(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var urns []string
	if err := json.Unmarshal([]byte(data), &urns); err != nil {
		return nil, fmt.Errorf("failed to decode urns: %w", err)
	}
	return urns, nil
}

// Timestamps are stored as RFC 3339 text in UTC.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	out := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '?')
	}
	return string(out)
}

// chunk splits keys into slices of at most size entries.
func chunk(keys []string, size int) [][]string {
	var parts [][]string
	for len(keys) > size {
		parts = append(parts, keys[:size])
		keys = keys[size:]
	}
	if len(keys) > 0 {
		parts = append(parts, keys)
	}
	return parts
}

// Compile-time check that SQLiteDatabase implements the Database interface
var _ contacts.Database = (*SQLiteDatabase)(nil)
