package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Bundled asset file names.
const (
	TheoryAssetFile      = "ai_trainer_bank_v2.json"
	OperationalAssetFile = "operational_skills.json"
)

// AssetStore reads the bundled assets from an http(s) base URL or a local directory.
type AssetStore struct {
	base   string
	client *http.Client
}

// NewAssetStore creates an AssetStore rooted at base.
func NewAssetStore(base string) *AssetStore {
	return &AssetStore{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *AssetStore) FetchTheory(ctx context.Context) ([]RawTheoryRecord, error) {
	items, err := s.fetch(ctx, TheoryAssetFile)
	if err != nil {
		return nil, err
	}
	out := make([]RawTheoryRecord, 0, len(items))
	for _, m := range items {
		out = append(out, TheoryFromMap(m))
	}
	return out, nil
}

func (s *AssetStore) FetchOperational(ctx context.Context) ([]RawCodeRecord, error) {
	items, err := s.fetch(ctx, OperationalAssetFile)
	if err != nil {
		return nil, err
	}
	out := make([]RawCodeRecord, 0, len(items))
	for _, m := range items {
		out = append(out, CodeFromMap(m))
	}
	return out, nil
}

func (s *AssetStore) fetch(ctx context.Context, name string) ([]map[string]any, error) {
	raw, err := s.read(ctx, name)
	if err != nil {
		return nil, err
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return items, nil
}

func (s *AssetStore) read(ctx context.Context, name string) ([]byte, error) {
	if !strings.HasPrefix(s.base, "http://") && !strings.HasPrefix(s.base, "https://") {
		raw, err := os.ReadFile(filepath.Join(s.base, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return raw, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/"+name, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", name, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
