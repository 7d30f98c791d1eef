package domain

import (
	"fmt"
	"slices"
	"time"
)

// Snapshot is an immutable view of every published stream. It is created by
// NewSnapshot, which enforces the invariants readers rely on, and is replaced
// wholesale on refresh rather than modified.
type Snapshot struct {
	recommendedStreamKey string
	streams              []StreamInfo
	byStreamKey          map[string]*PlatformInfo
	sourceTimestamp      string
	builtAt              time.Time
}

// NewSnapshot assembles a snapshot from per-stream platform infos, in the
// given order. It fails with ErrBuildInvariant when there is no stream, when
// the recommended key is unknown, when a stream has no extensions, when keys
// collide, or when the recommended flags disagree with the recommended key.
func NewSnapshot(recommendedStreamKey string, platforms []*PlatformInfo, sourceTimestamp string, builtAt time.Time) (*Snapshot, error) {
	if sourceTimestamp == "" {
		return nil, fmt.Errorf("%w: blank source timestamp", ErrBuildInvariant)
	}
	if len(platforms) == 0 {
		return nil, fmt.Errorf("%w: no stream found", ErrBuildInvariant)
	}

	s := &Snapshot{
		recommendedStreamKey: recommendedStreamKey,
		streams:              make([]StreamInfo, 0, len(platforms)),
		byStreamKey:          make(map[string]*PlatformInfo, len(platforms)),
		sourceTimestamp:      sourceTimestamp,
		builtAt:              builtAt,
	}

	recommended := 0
	for _, p := range platforms {
		if p == nil {
			return nil, fmt.Errorf("%w: nil platform info", ErrBuildInvariant)
		}
		key := p.stream.Key
		if _, dup := s.byStreamKey[key]; dup {
			return nil, fmt.Errorf("%w: duplicate stream key %s", ErrBuildInvariant, key)
		}
		if p.ExtensionCount() == 0 {
			return nil, fmt.Errorf("%w: no extension found in the stream %s", ErrBuildInvariant, key)
		}
		if p.stream.Recommended {
			recommended++
			if key != recommendedStreamKey {
				return nil, fmt.Errorf("%w: stream %s flagged recommended but recommended key is %s", ErrBuildInvariant, key, recommendedStreamKey)
			}
		}
		s.byStreamKey[key] = p
		s.streams = append(s.streams, p.stream.clone())
	}

	if _, ok := s.byStreamKey[recommendedStreamKey]; !ok {
		return nil, fmt.Errorf("%w: recommended stream not found in stream catalog: %s", ErrBuildInvariant, recommendedStreamKey)
	}
	if recommended != 1 {
		return nil, fmt.Errorf("%w: expected exactly one recommended stream, found %d", ErrBuildInvariant, recommended)
	}

	return s, nil
}

// RecommendedStreamKey returns the key of the recommended stream.
func (s *Snapshot) RecommendedStreamKey() string { return s.recommendedStreamKey }

// SourceTimestamp returns the registry provided timestamp. It is opaque and
// only compared for equality.
func (s *Snapshot) SourceTimestamp() string { return s.sourceTimestamp }

// BuiltAt returns when the snapshot was built locally.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Streams returns every stream in catalog order.
func (s *Snapshot) Streams() []StreamInfo {
	out := make([]StreamInfo, len(s.streams))
	for i, st := range s.streams {
		out[i] = st.clone()
	}
	return out
}

// StreamKeys returns the sorted stream keys.
func (s *Snapshot) StreamKeys() []string {
	keys := make([]string, 0, len(s.byStreamKey))
	for k := range s.byStreamKey {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of streams.
func (s *Snapshot) Len() int { return len(s.byStreamKey) }

// Platform returns the platform info of an exact stream key.
func (s *Snapshot) Platform(streamKey string) (*PlatformInfo, bool) {
	p, ok := s.byStreamKey[streamKey]
	return p, ok
}

// Recommended returns the platform info of the recommended stream.
func (s *Snapshot) Recommended() *PlatformInfo {
	return s.byStreamKey[s.recommendedStreamKey]
}

// NormalizeStreamKey qualifies a bare stream id with the recommended platform
// key. An empty key selects the recommended stream.
func (s *Snapshot) NormalizeStreamKey(key string) string {
	if key == "" {
		return s.recommendedStreamKey
	}
	if platformKey, _ := SplitStreamKey(key); platformKey != "" {
		return key
	}
	return StreamKey(s.Recommended().PlatformKey(), key)
}

// Lookup resolves a full key or bare stream id to its platform info.
func (s *Snapshot) Lookup(key string) (*PlatformInfo, error) {
	p, ok := s.byStreamKey[s.NormalizeStreamKey(key)]
	if !ok {
		return nil, &UnknownStreamError{Key: key}
	}
	return p, nil
}
