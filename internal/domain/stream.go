package domain

import (
	"slices"
	"strings"
)

// StreamKeySeparator separates the platform key from the stream id.
const StreamKeySeparator = ":"

// StatusFinal is the status label of a stream whose core version carries no
// pre-release qualifier.
const StatusFinal = "FINAL"

// JavaCompatibility describes the Java versions a stream can target.
type JavaCompatibility struct {
	// Versions holds the compatible versions in ascending order, without duplicates.
	Versions []int `json:"versions"`

	// Recommended is the default version. It is always a member of Versions.
	Recommended int `json:"recommended"`
}

// Supports reports whether version is one of the compatible versions.
func (j JavaCompatibility) Supports(version int) bool {
	_, found := slices.BinarySearch(j.Versions, version)
	return found
}

// Valid reports whether the versions are strictly ascending and contain the
// recommended version.
func (j JavaCompatibility) Valid() bool {
	if len(j.Versions) == 0 {
		return false
	}
	for i := 1; i < len(j.Versions); i++ {
		if j.Versions[i] <= j.Versions[i-1] {
			return false
		}
	}
	return j.Supports(j.Recommended)
}

// StreamInfo describes one release line of a platform.
type StreamInfo struct {
	// Key is "platformKey:streamId".
	Key string `json:"key"`

	// CoreVersion is the core framework version of the recommended release.
	CoreVersion string `json:"quarkusCoreVersion"`

	JavaCompatibility JavaCompatibility `json:"javaCompatibility"`

	// PlatformVersion is the version of the recommended release.
	PlatformVersion string `json:"platformVersion"`

	// Recommended is true for exactly one stream per snapshot.
	Recommended bool `json:"recommended"`

	// Status is the qualifier label derived from CoreVersion, e.g. "FINAL" or "CR1".
	Status string `json:"status"`

	// LTS marks long term support streams.
	LTS bool `json:"lts"`
}

// StreamID returns the stream id part of the key.
func (s StreamInfo) StreamID() string {
	_, id := SplitStreamKey(s.Key)
	return id
}

func (s StreamInfo) clone() StreamInfo {
	s.JavaCompatibility.Versions = slices.Clone(s.JavaCompatibility.Versions)
	return s
}

// StreamKey joins a platform key and a stream id.
func StreamKey(platformKey, streamID string) string {
	return platformKey + StreamKeySeparator + streamID
}

// SplitStreamKey splits a stream key at the last separator. A bare stream id
// yields an empty platform key.
func SplitStreamKey(key string) (platformKey, streamID string) {
	i := strings.LastIndex(key, StreamKeySeparator)
	if i < 0 {
		return "", key
	}
	return key[:i], key[i+1:]
}

// StreamStatus derives the status label from a core version string. The
// version is split on "." and "-"; the first token that is neither numeric nor
// "redhat" is the label, uppercased. Versions without such a token are FINAL.
func StreamStatus(coreVersion string) string {
	tokens := strings.FieldsFunc(coreVersion, func(r rune) bool {
		return r == '.' || r == '-'
	})
	for _, tok := range tokens {
		if isNumeric(tok) || strings.EqualFold(tok, "redhat") {
			continue
		}
		return strings.ToUpper(tok)
	}
	return StatusFinal
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
