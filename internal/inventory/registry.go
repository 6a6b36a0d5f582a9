package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/nerrad567/inels-core/internal/infrastructure/config"
	"github.com/nerrad567/inels-core/internal/inels"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry caches the device inventory in memory over a Repository.
//
// The config file is the source of truth: Sync makes the stored inventory
// match it, and BuildFleet turns the cached records into inels devices.
// All methods are safe for concurrent use.
type Registry struct {
	repo    Repository
	cache   map[string]Record
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a registry over repo. Call Refresh or Sync to load it.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]Record),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Refresh reloads the cache from the repository.
func (r *Registry) Refresh(ctx context.Context) error {
	records, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	cache := make(map[string]Record, len(records))
	for _, rec := range records {
		cache[rec.Key] = rec
	}

	r.cacheMu.Lock()
	r.cache = cache
	r.cacheMu.Unlock()

	r.logger.Debug("inventory cache refreshed", "count", len(records))
	return nil
}

// Sync upserts every configured device and removes stored devices that are
// no longer configured, then refreshes the cache. The changes are applied in
// one transaction: on error the stored inventory and the cache are left as
// they were.
func (r *Registry) Sync(ctx context.Context, devices []config.DeviceConfig) (SyncResult, error) {
	wanted := make([]Record, 0, len(devices))
	for i, d := range devices {
		rec, err := NewRecord(d.Name, d.NodeID, d.DeviceID, d.Type)
		if err != nil {
			return SyncResult{}, fmt.Errorf("devices[%d]: %w", i, err)
		}
		wanted = append(wanted, rec)
	}

	var result SyncResult
	err := r.repo.InTx(ctx, func(repo Repository) error {
		var err error
		result, err = applySync(ctx, repo, wanted)
		return err
	})
	if err != nil {
		return SyncResult{}, fmt.Errorf("syncing inventory: %w", err)
	}

	if err := r.Refresh(ctx); err != nil {
		return result, err
	}

	r.logger.Info("inventory synced",
		"added", result.Added,
		"updated", result.Updated,
		"removed", result.Removed,
		"unchanged", result.Unchanged,
	)
	return result, nil
}

// applySync makes repo hold exactly the wanted records.
func applySync(ctx context.Context, repo Repository, wanted []Record) (SyncResult, error) {
	var result SyncResult

	stored, err := repo.List(ctx)
	if err != nil {
		return result, fmt.Errorf("loading devices: %w", err)
	}
	existing := make(map[string]Record, len(stored))
	for _, rec := range stored {
		existing[rec.Key] = rec
	}

	// Free names before reassigning them: removals first.
	keep := make(map[string]bool, len(wanted))
	for _, rec := range wanted {
		keep[rec.Key] = true
	}
	for key := range existing {
		if keep[key] {
			continue
		}
		if err := repo.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			return result, err
		}
		result.Removed++
	}

	for i := range wanted {
		rec := wanted[i]
		prev, ok := existing[rec.Key]
		if ok && prev.sameDefinition(rec) {
			result.Unchanged++
			continue
		}
		if ok {
			rec.CreatedAt = prev.CreatedAt
		}
		if err := repo.Upsert(ctx, &rec); err != nil {
			return result, err
		}
		if ok {
			result.Updated++
		} else {
			result.Added++
		}
	}
	return result, nil
}

// Get returns a cached record by address key or name.
func (r *Registry) Get(ref string) (Record, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if rec, ok := r.cache[strings.ToUpper(ref)]; ok {
		return rec, nil
	}
	for _, rec := range r.cache {
		if rec.Name == ref {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

// List returns the cached records ordered by name.
func (r *Registry) List() []Record {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	out := make([]Record, 0, len(r.cache))
	for _, rec := range r.cache {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b Record) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Count returns the number of cached records.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// BuildFleet creates a stopped inels.Device for every cached record on bus.
// opts is applied to each device with Name set from the record.
func (r *Registry) BuildFleet(bus inels.Bus, opts inels.Options, logger inels.Logger) (*inels.Fleet, error) {
	fleet := inels.NewFleet(logger)
	for _, rec := range r.List() {
		o := opts
		o.Name = rec.Name
		d, err := inels.New(bus, rec.NodeID, rec.DeviceID, rec.Type, o)
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", rec.Name, err)
		}
		if err := fleet.Add(d); err != nil {
			return nil, err
		}
	}
	return fleet, nil
}
