package ordering

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/peterbourgon/diskv/v3"
)

// DiskLocal keeps one fallback order per folder on local disk.
type DiskLocal struct {
	d *diskv.Diskv
}

func NewDiskLocal(basePath string) *DiskLocal {
	return &DiskLocal{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 1024 * 1024,
	})}
}

// Folder ids are opaque, so keys are encoded to stay valid file names.
func localKey(folderID string) string {
	return "order-" + base64.RawURLEncoding.EncodeToString([]byte(folderID))
}

func (l *DiskLocal) GetFolderOrder(folderID string) ([]string, error) {
	key := localKey(folderID)
	if !l.d.Has(key) {
		return nil, nil
	}
	raw, err := l.d.Read(key)
	if err != nil {
		return nil, fmt.Errorf("read local order: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode local order: %w", err)
	}
	return ids, nil
}

func (l *DiskLocal) SetFolderOrder(folderID string, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode local order: %w", err)
	}
	if err := l.d.Write(localKey(folderID), raw); err != nil {
		return fmt.Errorf("write local order: %w", err)
	}
	return nil
}
