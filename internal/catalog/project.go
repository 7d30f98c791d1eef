package catalog

import (
	"regexp"
	"slices"
	"strings"

	"launcher/internal/domain"
	"launcher/internal/registry"
)

// MiscellaneousCategory holds extensions without a known category.
const MiscellaneousCategory = "Miscellaneous"

// tagKeyPattern selects the metadata entries exposed as tags.
var tagKeyPattern = regexp.MustCompile(`^(status|.+-support|with)$`)

// ProjectExtensions projects the listed extensions of a catalog. Categories
// are walked in catalog order, then uncategorized extensions; within a
// category extensions keep their declared order. Order numbers follow that
// walk.
func ProjectExtensions(cat *registry.ExtensionCatalog) []domain.ExtensionInfo {
	if cat == nil {
		return nil
	}

	categoryIndex := make(map[string]int, len(cat.Categories))
	for i, c := range cat.Categories {
		if _, ok := categoryIndex[c.ID]; !ok {
			categoryIndex[c.ID] = i
		}
	}

	buckets := make([][]domain.ExtensionInfo, len(cat.Categories)+1)
	misc := len(cat.Categories)

	for i := range cat.Extensions {
		ext := &cat.Extensions[i]
		info, ok := projectExtension(ext)
		if !ok {
			continue
		}

		bucket := misc
		info.Category = MiscellaneousCategory
		for _, id := range ext.Metadata.Strings(registry.MetadataCategories) {
			if idx, known := categoryIndex[id]; known {
				bucket = idx
				info.Category = cat.Categories[idx].Name
				break
			}
		}
		buckets[bucket] = append(buckets[bucket], info)
	}

	var out []domain.ExtensionInfo
	order := 0
	for _, bucket := range buckets {
		for _, info := range bucket {
			info.Order = order
			order++
			out = append(out, info)
		}
	}
	return out
}

func projectExtension(ext *registry.Extension) (domain.ExtensionInfo, bool) {
	if ext.Name == "" || ext.Metadata.Bool(registry.MetadataUnlisted) {
		return domain.ExtensionInfo{}, false
	}
	coords, err := ext.Coords()
	if err != nil {
		getLogger("builder").Debug("skipping extension with invalid coordinates",
			"name", ext.Name,
			"artifact", ext.Artifact,
		)
		return domain.ExtensionInfo{}, false
	}

	shortName := ext.Metadata.String(registry.MetadataShortName)
	if shortName == "" {
		shortName = ext.Name
	}

	return domain.ExtensionInfo{
		ID:                   coords.Key(),
		Version:              coords.Version,
		Name:                 ext.Name,
		Description:          ext.Description,
		ShortName:            shortName,
		Tags:                 extensionTags(ext.Metadata),
		Keywords:             extensionKeywords(ext.Metadata, coords.ArtifactID),
		TransitiveExtensions: ext.Metadata.Strings(registry.MetadataExtensionDependencies),
		Platform:             ext.HasPlatformOrigin(),
		BOM:                  originBOM(ext),
		Guide:                ext.Metadata.String(registry.MetadataGuide),
		ProvidesCode:         ext.Metadata.Has(registry.MetadataCodestart),
	}, true
}

// extensionTags returns "key:value" for each tag key with a value, in key order.
func extensionTags(md registry.Metadata) []string {
	keys := make([]string, 0, len(md))
	for k := range md {
		if tagKeyPattern.MatchString(k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	tags := make([]string, 0, len(keys))
	for _, k := range keys {
		values := md.Strings(k)
		if len(values) == 0 || values[0] == "" {
			continue
		}
		tags = append(tags, k+":"+values[0])
	}
	return tags
}

// extensionKeywords merges the declared keywords with the artifact id tokens.
func extensionKeywords(md registry.Metadata, artifactID string) []string {
	set := make(map[string]struct{})
	for _, k := range md.Strings(registry.MetadataKeywords) {
		if k = strings.TrimSpace(k); k != "" {
			set[k] = struct{}{}
		}
	}
	for _, tok := range strings.Split(artifactID, "-") {
		if tok != "" && tok != "quarkus" {
			set[tok] = struct{}{}
		}
	}

	keywords := make([]string, 0, len(set))
	for k := range set {
		keywords = append(keywords, k)
	}
	slices.Sort(keywords)
	return keywords
}

func originBOM(ext *registry.Extension) string {
	if len(ext.Origins) == 0 || ext.Origins[0].BOM == "" {
		return ""
	}
	raw := ext.Origins[0].BOM
	coords, err := registry.ParseCoords(raw)
	if err != nil {
		return raw
	}
	return coords.GAV()
}
