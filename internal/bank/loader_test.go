package bank

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	rows []RawTheoryRecord
	err  error
}

func (f *fakeRemote) FetchTheory(context.Context) ([]RawTheoryRecord, error) { return f.rows, f.err }

type fakeAssets struct {
	theory    []RawTheoryRecord
	code      []RawCodeRecord
	theoryErr error
}

func (f *fakeAssets) FetchTheory(context.Context) ([]RawTheoryRecord, error) {
	return f.theory, f.theoryErr
}

func (f *fakeAssets) FetchOperational(context.Context) ([]RawCodeRecord, error) { return f.code, nil }

type memCache struct {
	snap  *Snapshot
	saves int
}

func (m *memCache) LoadSnapshot(context.Context) (*Snapshot, bool, error) {
	return m.snap, m.snap != nil, nil
}

func (m *memCache) SaveSnapshot(_ context.Context, s *Snapshot) error {
	m.snap = s
	m.saves++
	return nil
}

func TestLoaderPrefersRemoteAndCaches(t *testing.T) {
	remote := &fakeRemote{rows: []RawTheoryRecord{theoryRec("r1", "tf", "Remote", "T", "对", "错")}}
	assets := &fakeAssets{code: []RawCodeRecord{{ID: "op1", Category: "Ops"}}}
	cache := &memCache{}

	snap, origin, err := NewLoader(remote, assets, cache, zerolog.Nop()).Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OriginRemote, origin)
	assert.Len(t, snap.TheoryQuestions, 1)
	assert.Len(t, snap.CodeQuestions, 1)
	assert.Equal(t, 1, cache.saves)
}

func TestLoaderFallsBackToCacheOnEmptyRemote(t *testing.T) {
	cached := &Snapshot{TheoryQuestions: nil}
	cache := &memCache{snap: cached}
	assets := &fakeAssets{theory: []RawTheoryRecord{theoryRec("a1", "tf", "Asset", "T", "对")}}

	snap, origin, err := NewLoader(&fakeRemote{}, assets, cache, zerolog.Nop()).Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OriginCache, origin)
	assert.Same(t, cached, snap)
	assert.Equal(t, 0, cache.saves)
}

func TestLoaderFallsBackToAssets(t *testing.T) {
	cache := &memCache{}
	assets := &fakeAssets{theory: []RawTheoryRecord{theoryRec("a1", "tf", "Asset", "T", "对")}}

	snap, origin, err := NewLoader(&fakeRemote{err: errors.New("offline")}, assets, cache, zerolog.Nop()).Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OriginAssets, origin)
	assert.Equal(t, "a1", snap.TheoryQuestions[0].ID)
	assert.Equal(t, 1, cache.saves)
}

func TestLoaderFailsWhenEverythingFails(t *testing.T) {
	assets := &fakeAssets{theoryErr: errors.New("missing file")}

	_, _, err := NewLoader(nil, assets, nil, zerolog.Nop()).Load(context.Background())

	assert.Error(t, err)
}
