package contacts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	"caseline/internal/model"
)

const exportPageSize = 500

// BuildExport writes a CSV of the org's active contacts into the spool and
// records it as pending. Stub contacts are left out. The columns cover the
// org's visible fields only; the spooled file is plaintext until pushed, so
// the spool directory needs the same protection as the database.
func (s *Service) BuildExport(org string) (*model.Export, error) {
	fields, err := s.database.GetFields(org)
	if err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}
	var fieldKeys []string
	for _, f := range fields {
		if f.IsVisible {
			fieldKeys = append(fieldKeys, f.Key)
		}
	}
	sort.Strings(fieldKeys)

	var buf bytes.Buffer
	hash := sha256.New()
	w := csv.NewWriter(io.MultiWriter(&buf, hash))

	header := append([]string{"UUID", "Name", "Language", "URNs", "Groups"}, fieldKeys...)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("writing export header: %w", err)
	}

	afterID := ""
	for {
		contacts, err := s.database.ListContacts(org, afterID, exportPageSize)
		if err != nil {
			return nil, fmt.Errorf("listing contacts: %w", err)
		}
		if len(contacts) == 0 {
			break
		}
		for _, c := range contacts {
			if err := w.Write(exportRow(c, fieldKeys)); err != nil {
				return nil, fmt.Errorf("writing export row: %w", err)
			}
		}
		afterID = contacts[len(contacts)-1].ID
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("writing export: %w", err)
	}

	export := &model.Export{
		ID:        s.idgen.New(),
		OrgID:     org,
		Size:      int64(buf.Len()),
		Checksum:  hex.EncodeToString(hash.Sum(nil)),
		Status:    model.ExportStatusPending,
		CreatedAt: s.clock.Now(),
	}
	export.Key = fmt.Sprintf("exports/%s/%s.csv.age", org, export.ID)

	entry := SpoolEntry{ExportID: export.ID, Key: export.Key, Size: export.Size}
	if err := s.spool.Add(entry, &buf); err != nil {
		return nil, fmt.Errorf("spooling export: %w", err)
	}
	if err := s.database.CreateExport(export); err != nil {
		return nil, fmt.Errorf("recording export: %w", err)
	}

	s.logger.Info("export built", "org", org, "export", export.ID, "bytes", export.Size)
	return export, nil
}

// exportRow renders one contact. Every field column is present, empty when
// the contact has no value for it.
func exportRow(c *model.Contact, fieldKeys []string) []string {
	urns := make([]string, len(c.URNs))
	copy(urns, c.URNs)
	sort.Strings(urns)

	names := make([]string, 0, len(c.Groups))
	for _, g := range c.Groups {
		names = append(names, g.Name)
	}
	sort.Strings(names)

	row := []string{c.UUID, c.Name, c.Language, strings.Join(urns, "; "), strings.Join(names, "; ")}
	for _, key := range fieldKeys {
		row = append(row, c.Fields[key])
	}
	return row
}

// PushExports drains the spool, encrypting each export with the configured
// identity and uploading it to the vault. Returns how many exports were
// pushed. A failure leaves the entry spooled and stops the drain.
func (s *Service) PushExports(ctx context.Context) (int, error) {
	count := 0
	for {
		processed, err := s.spool.ProcessNext(func(entry SpoolEntry, content io.Reader) error {
			return s.pushExport(ctx, entry, content)
		})
		if err != nil {
			return count, fmt.Errorf("pushing export: %w", err)
		}
		if !processed {
			break
		}
		count++
	}
	if count > 0 {
		s.logger.Info("exports pushed", "count", count)
	}
	return count, nil
}

func (s *Service) pushExport(ctx context.Context, entry SpoolEntry, content io.Reader) error {
	var sealed bytes.Buffer
	if err := s.encryptor.Encrypt(content, &sealed); err != nil {
		return fmt.Errorf("encrypting export %s: %w", entry.ExportID, err)
	}
	if err := s.vault.Put(ctx, entry.Key, &sealed, int64(sealed.Len())); err != nil {
		return fmt.Errorf("storing export %s: %w", entry.ExportID, err)
	}
	if err := s.database.UpdateExportStatus(entry.ExportID, model.ExportStatusPushed); err != nil {
		return fmt.Errorf("recording export %s: %w", entry.ExportID, err)
	}

	s.logger.Debug("export pushed", "export", entry.ExportID, "key", entry.Key)
	return nil
}

// FetchExport downloads a pushed export from the vault and decrypts it
// into w using an unlocked decryption context.
func (s *Service) FetchExport(ctx context.Context, org, id string, decryptCtx DecryptionContext, w io.Writer) error {
	export, err := s.database.FindExport(org, id)
	if err != nil {
		return fmt.Errorf("finding export %s: %w", id, err)
	}
	if export == nil {
		return fmt.Errorf("export %s: %w", id, ErrNotFound)
	}
	if export.Status != model.ExportStatusPushed {
		return fmt.Errorf("export %s has not been pushed", id)
	}

	obj, err := s.vault.Get(ctx, export.Key)
	if err != nil {
		return fmt.Errorf("retrieving export %s: %w", id, err)
	}
	defer obj.Close()

	if err := decryptCtx.Decrypt(obj, w); err != nil {
		return fmt.Errorf("decrypting export %s: %w", id, err)
	}
	return nil
}
