package storage

import (
	"bytes"

	"github.com/rotisserie/eris"
)

// Handle is a small opaque reference to an asset in the side-store. The zero
// handle is "no asset". Handles embed into the world as scalar u64
// components.
type Handle uint64

// Asset is the external collaborator boundary: anything with a name and a
// binary payload can be inserted into a world.
type Asset interface {
	Name() string
	Bytes() []byte
}

// RawAsset is the trivial Asset: a name and a blob.
type RawAsset struct {
	AssetName string
	Data      []byte
}

func (a RawAsset) Name() string  { return a.AssetName }
func (a RawAsset) Bytes() []byte { return a.Data }

type assetEntry struct {
	name string
	data []byte
}

// AssetStore is the content-addressed, write-once asset side-store. Assets
// are keyed by name: re-inserting an identical (name, bytes) pair is
// idempotent and returns the original handle; re-inserting a name with
// different bytes fails with ErrAssetConflict.
type AssetStore struct {
	byName map[string]Handle
	blobs  []assetEntry
}

func NewAssetStore() *AssetStore {
	return &AssetStore{byName: map[string]Handle{}}
}

func (s *AssetStore) Insert(asset Asset) (Handle, error) {
	name := asset.Name()
	if name == "" {
		return 0, eris.New("asset name must not be empty")
	}
	data := asset.Bytes()
	if h, ok := s.byName[name]; ok {
		if bytes.Equal(s.blobs[h-1].data, data) {
			return h, nil
		}
		return 0, eris.Wrap(ErrAssetConflict, name)
	}
	blob := make([]byte, len(data))
	copy(blob, data)
	s.blobs = append(s.blobs, assetEntry{name: name, data: blob})
	h := Handle(len(s.blobs))
	s.byName[name] = h
	return h, nil
}

// Resolve returns the asset a handle points at.
func (s *AssetStore) Resolve(h Handle) (name string, data []byte, err error) {
	if h == 0 || int(h) > len(s.blobs) {
		return "", nil, eris.Errorf("asset handle %d does not resolve", h)
	}
	entry := s.blobs[h-1]
	return entry.name, entry.data, nil
}

func (s *AssetStore) Len() int { return len(s.blobs) }
