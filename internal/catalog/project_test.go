package catalog

import (
	"slices"
	"testing"

	"launcher/internal/registry"
)

func TestProjectExtensions(t *testing.T) {
	exts := ProjectExtensions(testExtensionCatalog("3.15.1", "21"))

	wantIDs := []string{
		"io.quarkus:quarkus-rest",
		"io.quarkus:quarkus-rest-jackson",
		"io.quarkus:quarkus-hibernate-validator",
		"io.quarkus:quarkus-hibernate-orm",
		"io.quarkus:quarkus-spring-web",
	}
	var gotIDs []string
	for i, ext := range exts {
		gotIDs = append(gotIDs, ext.ID)
		if ext.Order != i {
			t.Errorf("%s: Order = %d, want %d", ext.ID, ext.Order, i)
		}
	}
	if !slices.Equal(gotIDs, wantIDs) {
		t.Fatalf("ids = %v, want %v", gotIDs, wantIDs)
	}

	rest := exts[0]
	if rest.Category != "Web" {
		t.Errorf("rest.Category = %q", rest.Category)
	}
	if rest.Version != "3.15.1" || !rest.Platform {
		t.Errorf("rest version/platform = %q/%v", rest.Version, rest.Platform)
	}
	if !slices.Equal(rest.Tags, []string{"status:stable"}) {
		t.Errorf("rest.Tags = %v", rest.Tags)
	}
	if !slices.Equal(rest.Keywords, []string{"jaxrs", "rest"}) {
		t.Errorf("rest.Keywords = %v", rest.Keywords)
	}
	if !rest.ProvidesCode {
		t.Error("rest.ProvidesCode = false")
	}
	if rest.BOM != "io.quarkus.platform:quarkus-bom:3.15.1" {
		t.Errorf("rest.BOM = %q", rest.BOM)
	}
	if rest.ShortName != "REST" {
		t.Errorf("rest.ShortName = %q", rest.ShortName)
	}

	if got := exts[3].Category; got != "Data" {
		t.Errorf("hibernate-orm.Category = %q", got)
	}
	if got := exts[4].Category; got != MiscellaneousCategory {
		t.Errorf("spring-web.Category = %q", got)
	}
}

func TestProjectExtensions_Skips(t *testing.T) {
	cat := &registry.ExtensionCatalog{
		Extensions: []registry.Extension{
			{Name: "", Artifact: "io.quarkus:quarkus-nameless::jar:1.0"},
			{Name: "Bad", Artifact: "not-coordinates"},
			{Name: "Hidden", Artifact: "io.quarkus:quarkus-hidden::jar:1.0", Metadata: registry.Metadata{registry.MetadataUnlisted: "true"}},
			{Name: "Kept", Artifact: "io.quarkus:quarkus-kept::jar:1.0", Metadata: registry.Metadata{registry.MetadataShortName: "kept"}},
		},
	}

	exts := ProjectExtensions(cat)
	if len(exts) != 1 || exts[0].ID != "io.quarkus:quarkus-kept" {
		t.Fatalf("ProjectExtensions() = %+v", exts)
	}
	if exts[0].ShortName != "kept" {
		t.Errorf("ShortName = %q", exts[0].ShortName)
	}
	if exts[0].Platform {
		t.Error("extension without origins reported as platform")
	}

	if ProjectExtensions(nil) != nil {
		t.Error("ProjectExtensions(nil) != nil")
	}
}

func TestExtensionTags(t *testing.T) {
	md := registry.Metadata{
		"status":          "experimental",
		"native-support":  true,
		"with":            []any{"codestart"},
		"unrelated":       "x",
		"kotlin-support":  "",
		"minimum-version": "17",
	}
	want := []string{"native-support:true", "status:experimental", "with:codestart"}
	if got := extensionTags(md); !slices.Equal(got, want) {
		t.Errorf("extensionTags() = %v, want %v", got, want)
	}
}

func TestComputeJavaCompatibility(t *testing.T) {
	tests := []struct {
		name      string
		md        registry.Metadata
		extMin    string
		lts       []int
		exclude   []int
		want      []int
		wantRec   int
		wantFound bool
	}{
		{
			name:      "no metadata",
			lts:       []int{17, 21, 25},
			want:      []int{17, 21, 25},
			wantRec:   17,
			wantFound: true,
		},
		{
			name:      "minimum and recommended",
			md:        registry.Metadata{registry.MetadataMinimumJavaVersion: "21", registry.MetadataRecommendedJavaVersion: "25"},
			lts:       []int{17, 21, 25},
			want:      []int{21, 25},
			wantRec:   25,
			wantFound: true,
		},
		{
			name:      "unsupported recommendation ignored",
			md:        registry.Metadata{registry.MetadataRecommendedJavaVersion: "11"},
			lts:       []int{17, 21},
			want:      []int{17, 21},
			wantRec:   17,
			wantFound: true,
		},
		{
			name:      "extension raises minimum",
			extMin:    "21",
			lts:       []int{25, 17, 21, 21},
			want:      []int{21, 25},
			wantRec:   21,
			wantFound: true,
		},
		{
			name:      "exclusions",
			lts:       []int{17, 21, 25},
			exclude:   []int{21},
			want:      []int{17, 25},
			wantRec:   17,
			wantFound: true,
		},
		{
			name:      "nothing left",
			md:        registry.Metadata{registry.MetadataMinimumJavaVersion: "26"},
			lts:       []int{17, 21, 25},
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := &registry.ExtensionCatalog{Metadata: tt.md}
			if tt.extMin != "" {
				cat.Extensions = []registry.Extension{{
					Name:     "x",
					Artifact: "io.quarkus:quarkus-x::jar:1.0",
					Metadata: registry.Metadata{registry.MetadataMinimumJavaVersion: tt.extMin},
				}}
			}

			got, ok := ComputeJavaCompatibility(cat, tt.lts, tt.exclude)
			if ok != tt.wantFound {
				t.Fatalf("found = %v, want %v", ok, tt.wantFound)
			}
			if !ok {
				return
			}
			if !slices.Equal(got.Versions, tt.want) || got.Recommended != tt.wantRec {
				t.Errorf("ComputeJavaCompatibility() = %+v, want %v rec %d", got, tt.want, tt.wantRec)
			}
			if !got.Valid() {
				t.Errorf("result %+v is not valid", got)
			}
		})
	}
}
