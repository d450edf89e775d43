package category

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/marketfee/internal/cache"
)

// Item is a category as presented to a seller of one type.
type Item struct {
	Name        string   `json:"name"`
	Path        []string `json:"path"`
	FullPath    string   `json:"fullPath"`
	HasChildren bool     `json:"hasChildren"`
	Fee         string   `json:"fee,omitempty"`
	FeePercent  *float64 `json:"feePercent,omitempty"`
}

// Selection is the outcome of choosing a leaf category.
type Selection struct {
	FullPath   string  `json:"fullPath"`
	Fee        string  `json:"fee"`
	FeePercent float64 `json:"feePercent"`
}

// Service answers browse and search requests with a read-through cache.
type Service struct {
	store   *Store
	cache   cache.Cache
	ttl     time.Duration
	version string
	logger  *zap.Logger
}

// NewService wires the store and cache. version namespaces cache keys so a
// reseeded dataset never serves stale entries.
func NewService(store *Store, c cache.Cache, ttl time.Duration, version string, logger *zap.Logger) *Service {
	if c == nil {
		c = cache.NewMemory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: c, ttl: ttl, version: version, logger: logger}
}

// Browse lists the children of path for the given seller type.
func (s *Service) Browse(ctx context.Context, path []string, mall bool) ([]Item, error) {
	parent := JoinPath(path)
	entries, err := s.cached(ctx, "children:"+parent, func() ([]Entry, error) {
		return s.store.Children(ctx, parent)
	})
	if err != nil {
		return nil, err
	}
	return toItems(entries, mall), nil
}

// Search finds leaves matching term for the given seller type.
func (s *Service) Search(ctx context.Context, term string, mall bool, limit int) ([]Item, error) {
	entries, err := s.cached(ctx, fmt.Sprintf("search:%d:%s", limit, term), func() ([]Entry, error) {
		return s.store.Search(ctx, term, limit)
	})
	if err != nil {
		return nil, err
	}
	return toItems(entries, mall), nil
}

// Select resolves a leaf path to its transaction fee rate.
func (s *Service) Select(ctx context.Context, path []string, mall bool) (Selection, error) {
	entry, err := s.store.Get(ctx, JoinPath(path))
	if err != nil {
		return Selection{}, err
	}
	if !entry.Leaf {
		return Selection{}, fmt.Errorf("category %q has no fee: %w", entry.FullPath, ErrNotFound)
	}
	fee := entry.Fee(mall)
	percent, err := ParseFeePercent(fee)
	if err != nil {
		return Selection{}, fmt.Errorf("category %q: %w", entry.FullPath, err)
	}
	return Selection{FullPath: entry.FullPath, Fee: fee, FeePercent: percent}, nil
}

// Count reports how many category nodes are loaded.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func (s *Service) cached(ctx context.Context, key string, load func() ([]Entry, error)) ([]Entry, error) {
	key = "category:" + s.version + ":" + key

	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("category cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var entries []Entry
		if err := json.Unmarshal(data, &entries); err == nil {
			return entries, nil
		}
		s.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	}

	entries, err := load()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(entries); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn("category cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return entries, nil
}

func toItems(entries []Entry, mall bool) []Item {
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		item := Item{
			Name:        e.Name,
			Path:        e.Path(),
			FullPath:    e.FullPath,
			HasChildren: !e.Leaf,
		}
		if e.Leaf {
			item.Fee = e.Fee(mall)
			if v, err := ParseFeePercent(item.Fee); err == nil {
				item.FeePercent = &v
			}
		}
		items = append(items, item)
	}
	return items
}
