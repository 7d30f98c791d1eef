package catalog

import (
	"slices"

	"launcher/internal/domain"
	"launcher/internal/registry"
)

// DefaultJavaLTSVersions are the Java LTS releases offered to projects.
var DefaultJavaLTSVersions = []int{17, 21, 25}

// MinimumJavaVersion returns the highest minimum Java version declared by the
// catalog or any of its extensions, or 0 when none is declared.
func MinimumJavaVersion(cat *registry.ExtensionCatalog) int {
	minimum, _ := cat.Metadata.Int(registry.MetadataMinimumJavaVersion)
	for i := range cat.Extensions {
		if v, ok := cat.Extensions[i].Metadata.Int(registry.MetadataMinimumJavaVersion); ok && v > minimum {
			minimum = v
		}
	}
	return minimum
}

// ComputeJavaCompatibility selects the LTS versions a stream supports. It
// reports false when no version remains.
func ComputeJavaCompatibility(cat *registry.ExtensionCatalog, lts, exclude []int) (domain.JavaCompatibility, bool) {
	minimum := MinimumJavaVersion(cat)

	versions := make([]int, 0, len(lts))
	for _, v := range lts {
		if v < minimum || slices.Contains(exclude, v) || slices.Contains(versions, v) {
			continue
		}
		versions = append(versions, v)
	}
	slices.Sort(versions)
	if len(versions) == 0 {
		return domain.JavaCompatibility{}, false
	}

	compat := domain.JavaCompatibility{Versions: versions, Recommended: versions[0]}
	if rec, ok := cat.Metadata.Int(registry.MetadataRecommendedJavaVersion); ok && compat.Supports(rec) {
		compat.Recommended = rec
	}
	return compat, true
}
