package bank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Origin names where a snapshot came from.
type Origin string

const (
	OriginRemote Origin = "remote"
	OriginCache  Origin = "cache"
	OriginAssets Origin = "assets"
)

// ErrEmptyBank is returned when the remote table has no rows.
var ErrEmptyBank = errors.New("question bank is empty")

// RemoteSource reads theory rows from the remote store.
type RemoteSource interface {
	FetchTheory(ctx context.Context) ([]RawTheoryRecord, error)
}

// AssetSource reads the bundled JSON assets.
type AssetSource interface {
	FetchTheory(ctx context.Context) ([]RawTheoryRecord, error)
	FetchOperational(ctx context.Context) ([]RawCodeRecord, error)
}

// SnapshotCache stores the last good snapshot.
type SnapshotCache interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, bool, error)
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
}

// Loader resolves the question bank: remote first, then the cached snapshot,
// then the bundled assets.
type Loader struct {
	remote RemoteSource
	assets AssetSource
	cache  SnapshotCache
	log    zerolog.Logger
	now    func() time.Time
}

// NewLoader creates a Loader. remote and cache may be nil.
func NewLoader(remote RemoteSource, assets AssetSource, cache SnapshotCache, log zerolog.Logger) *Loader {
	return &Loader{
		remote: remote,
		assets: assets,
		cache:  cache,
		log:    log.With().Str("component", "bank_loader").Logger(),
		now:    time.Now,
	}
}

// Load returns a normalized snapshot and where it came from. It only fails
// when every source has failed.
func (l *Loader) Load(ctx context.Context) (*Snapshot, Origin, error) {
	snap, err := l.loadRemote(ctx)
	if err == nil {
		l.save(ctx, snap)
		return snap, OriginRemote, nil
	}
	l.log.Warn().Err(err).Msg("Remote question bank unavailable, falling back")

	if l.cache != nil {
		cached, ok, cerr := l.cache.LoadSnapshot(ctx)
		switch {
		case cerr != nil:
			l.log.Warn().Err(cerr).Msg("Cached question bank unreadable")
		case ok:
			return cached, OriginCache, nil
		}
	}

	snap, err = l.loadAssets(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load bundled assets: %w", err)
	}
	l.save(ctx, snap)
	return snap, OriginAssets, nil
}

func (l *Loader) loadRemote(ctx context.Context) (*Snapshot, error) {
	if l.remote == nil {
		return nil, errors.New("no remote source configured")
	}
	theory, err := l.remote.FetchTheory(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch remote theory: %w", err)
	}
	if len(theory) == 0 {
		return nil, ErrEmptyBank
	}
	code, err := l.assets.FetchOperational(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch operational asset: %w", err)
	}
	return Normalize(theory, code, l.now()), nil
}

func (l *Loader) loadAssets(ctx context.Context) (*Snapshot, error) {
	theory, err := l.assets.FetchTheory(ctx)
	if err != nil {
		return nil, err
	}
	code, err := l.assets.FetchOperational(ctx)
	if err != nil {
		return nil, err
	}
	return Normalize(theory, code, l.now()), nil
}

func (l *Loader) save(ctx context.Context, snap *Snapshot) {
	if l.cache == nil {
		return
	}
	if err := l.cache.SaveSnapshot(ctx, snap); err != nil {
		l.log.Warn().Err(err).Msg("Failed to cache question bank")
	}
}
