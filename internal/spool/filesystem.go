package spool

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"caseline/internal/contacts"
)

// fileStore keeps spooled exports on the filesystem so pending pushes
// survive process restarts.
//
// Directory structure:
//
//	<spool_dir>/
//	  queue.json    (ordered list of spooled entries)
//	  content/
//	    <export_id>    (export content)
type fileStore struct {
	contentDir string
	queuePath  string
	queue      []contacts.SpoolEntry
}

// NewFileSystemSpool creates a filesystem-backed spool rooted at spoolDir.
// Entries queued by a previous process are recovered; content files no
// longer referenced by the queue are removed.
func NewFileSystemSpool(spoolDir string, maxSize int64) (contacts.Spool, error) {
	store, err := newFileStore(spoolDir)
	if err != nil {
		return nil, err
	}
	return &exportSpool{store: store, maxSize: maxSize}, nil
}

func newFileStore(spoolDir string) (*fileStore, error) {
	contentDir := filepath.Join(spoolDir, "content")
	if err := os.MkdirAll(contentDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	store := &fileStore{
		contentDir: contentDir,
		queuePath:  filepath.Join(spoolDir, "queue.json"),
	}
	if err := store.loadQueue(); err != nil {
		return nil, err
	}
	if err := store.removeOrphans(); err != nil {
		return nil, err
	}
	return store, nil
}

func (f *fileStore) loadQueue() error {
	data, err := os.ReadFile(f.queuePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read spool queue: %w", err)
	}
	if err := json.Unmarshal(data, &f.queue); err != nil {
		return fmt.Errorf("failed to parse spool queue: %w", err)
	}
	return nil
}

// saveQueue writes the queue atomically so a crash mid-write cannot
// corrupt it.
func (f *fileStore) saveQueue() error {
	data, err := json.Marshal(f.queue)
	if err != nil {
		return fmt.Errorf("failed to encode spool queue: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.queuePath), ".queue-*")
	if err != nil {
		return fmt.Errorf("failed to create queue temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write spool queue: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write spool queue: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.queuePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace spool queue: %w", err)
	}
	return nil
}

// removeOrphans deletes content files not referenced by any queued entry,
// left behind by a crash between writing content and saving the queue.
func (f *fileStore) removeOrphans() error {
	referenced := make(map[string]bool, len(f.queue))
	for _, entry := range f.queue {
		referenced[entry.ExportID] = true
	}

	entries, err := os.ReadDir(f.contentDir)
	if err != nil {
		return fmt.Errorf("failed to read spool content: %w", err)
	}
	for _, dirEntry := range entries {
		if !referenced[dirEntry.Name()] {
			os.Remove(filepath.Join(f.contentDir, dirEntry.Name()))
		}
	}
	return nil
}

func (f *fileStore) contentPath(exportID string) string {
	return filepath.Join(f.contentDir, exportID)
}

func (f *fileStore) StoreContent(exportID string, r io.Reader) (int64, error) {
	path := f.contentPath(exportID)
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(file, r)
	if err != nil {
		file.Close()
		os.Remove(path)
		return 0, err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return 0, err
	}
	return written, nil
}

func (f *fileStore) RemoveContent(exportID string) {
	os.Remove(f.contentPath(exportID))
}

func (f *fileStore) OpenContent(exportID string) (io.ReadCloser, error) {
	file, err := os.Open(f.contentPath(exportID))
	if err != nil {
		return nil, fmt.Errorf("content not found: %s", exportID)
	}
	return file, nil
}

func (f *fileStore) ContentSize() (int64, error) {
	entries, err := os.ReadDir(f.contentDir)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, dirEntry := range entries {
		info, err := dirEntry.Info()
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

func (f *fileStore) Append(entry contacts.SpoolEntry) error {
	f.queue = append(f.queue, entry)
	if err := f.saveQueue(); err != nil {
		f.queue = f.queue[:len(f.queue)-1]
		return err
	}
	return nil
}

func (f *fileStore) Peek() (*contacts.SpoolEntry, error) {
	if len(f.queue) == 0 {
		return nil, nil
	}
	entry := f.queue[0]
	return &entry, nil
}

func (f *fileStore) Pop(exportID string) error {
	for i, entry := range f.queue {
		if entry.ExportID == exportID {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			return f.saveQueue()
		}
	}
	return fmt.Errorf("entry not found in queue: %s", exportID)
}

func (f *fileStore) Len() (int, error) {
	return len(f.queue), nil
}
