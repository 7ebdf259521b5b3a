// Package inventory discovers backend namespaces and caches the result.
package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/internal/domain"
	"github.com/quarrylabs/quarry/internal/logger"
	"github.com/quarrylabs/quarry/internal/metrics"
)

const defaultSampleSize = 5

// Inventory is the cached namespace listing handed to callers.
type Inventory struct {
	Data      []domain.NamespaceInfo
	CacheHit  bool
	ExpiresAt time.Time
}

// Service serves the namespace inventory from a TTL cache, running discovery
// against the dense index on miss.
type Service struct {
	index      IndexReader
	cache      *Cache
	sampleSize int
}

// New creates an inventory service.
func New(index IndexReader, cache *Cache) *Service {
	return &Service{index: index, cache: cache, sampleSize: defaultSampleSize}
}

// WithSampleSize overrides how many records are sampled per namespace.
func (s *Service) WithSampleSize(n int) *Service {
	if n > 0 {
		s.sampleSize = n
	}
	return s
}

// List returns the namespace inventory, refreshing the cache if expired.
func (s *Service) List(ctx context.Context) (Inventory, error) {
	snap, hit, err := s.cache.Get(ctx, s.discover)
	if err != nil {
		return Inventory{}, fmt.Errorf("list namespaces: %w", err)
	}
	metrics.ObserveCacheRead(hit)
	return Inventory{Data: snap.Data, CacheHit: hit, ExpiresAt: snap.ExpiresAt}, nil
}

// Lookup returns one namespace from the cached inventory.
func (s *Service) Lookup(ctx context.Context, namespace string) (domain.NamespaceInfo, error) {
	inv, err := s.List(ctx)
	if err != nil {
		return domain.NamespaceInfo{}, err
	}
	for _, ns := range inv.Data {
		if ns.Name == namespace {
			return ns, nil
		}
	}
	return domain.NamespaceInfo{}, fmt.Errorf(
		"%w: %q (call list_namespaces to discover available namespaces)",
		domain.ErrNamespaceNotFound, namespace,
	)
}

// Invalidate drops the cached inventory.
func (s *Service) Invalidate() {
	s.cache.Invalidate()
}

// discover enumerates namespaces from index stats and samples each non-empty
// namespace to infer its metadata schema. A sampling failure in one namespace
// is logged and leaves that namespace with an empty field map; it never aborts
// discovery of the others.
func (s *Service) discover(ctx context.Context) ([]domain.NamespaceInfo, error) {
	stats, err := s.index.Describe(ctx)
	if err != nil {
		return nil, fmt.Errorf("describe index: %w", err)
	}

	infos := make([]domain.NamespaceInfo, 0, len(stats.Namespaces))
	for name, ns := range stats.Namespaces {
		infos = append(infos, domain.NamespaceInfo{
			Name:        name,
			RecordCount: ns.RecordCount,
			Fields:      map[string]domain.Kind{},
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	probe := make([]float32, stats.Dimension)

	var wg sync.WaitGroup
	for i := range infos {
		if infos[i].RecordCount == 0 {
			continue
		}
		wg.Add(1)
		go func(info *domain.NamespaceInfo) {
			defer wg.Done()
			fields, err := s.sampleFields(ctx, info.Name, probe)
			if err != nil {
				logger.FromContext(ctx).Warn("namespace sampling failed",
					zap.String("namespace", info.Name),
					zap.Error(err),
				)
				return
			}
			info.Fields = fields
		}(&infos[i])
	}
	wg.Wait()

	return infos, nil
}

// sampleFields probes a namespace with a zero vector and unions the observed
// metadata keys into a field → kind map.
func (s *Service) sampleFields(
	ctx context.Context, namespace string, probe []float32,
) (map[string]domain.Kind, error) {
	hits, err := s.index.SampleByVector(ctx, namespace, probe, s.sampleSize)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]domain.Kind)
	for _, h := range hits {
		for key, value := range h.Fields {
			kind := domain.ValueOf(value).Kind()
			if prev, ok := fields[key]; ok {
				fields[key] = domain.MergeKind(prev, kind)
			} else {
				fields[key] = kind
			}
		}
	}
	return fields, nil
}
