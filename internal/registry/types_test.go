package registry

import (
	"slices"
	"testing"
)

func TestParseCoords(t *testing.T) {
	tests := []struct {
		in      string
		want    ArtifactCoords
		wantErr bool
	}{
		{in: "g:a:1.0", want: ArtifactCoords{GroupID: "g", ArtifactID: "a", Version: "1.0"}},
		{in: "g:a:pom:1.0", want: ArtifactCoords{GroupID: "g", ArtifactID: "a", Type: "pom", Version: "1.0"}},
		{in: "io.quarkus:quarkus-rest::jar:3.15.1", want: ArtifactCoords{GroupID: "io.quarkus", ArtifactID: "quarkus-rest", Type: "jar", Version: "3.15.1"}},
		{in: "g:a", wantErr: true},
		{in: "g::1.0", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCoords(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseCoords(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCoords(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseCoords(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDescriptorPath(t *testing.T) {
	c := ArtifactCoords{GroupID: "io.quarkus.platform", ArtifactID: "quarkus-bom", Version: "3.15.1"}
	want := "io/quarkus/platform/quarkus-bom-quarkus-platform-descriptor/3.15.1/quarkus-bom-quarkus-platform-descriptor-3.15.1-3.15.1.json"
	if got := c.DescriptorPath(); got != want {
		t.Errorf("DescriptorPath() = %q, want %q", got, want)
	}
}

func TestMetadata(t *testing.T) {
	md := Metadata{
		"keywords":             []any{"rest", "jaxrs", nil},
		"status":               "stable",
		"minimum-java-version": float64(17),
		"recommended":          "21",
		"lts":                  true,
		"lts-string":           "true",
		"bogus":                "x17",
	}

	if got := md.Strings("keywords"); !slices.Equal(got, []string{"rest", "jaxrs"}) {
		t.Errorf("Strings(keywords) = %v", got)
	}
	if got := md.Strings("status"); !slices.Equal(got, []string{"stable"}) {
		t.Errorf("Strings(status) = %v", got)
	}
	if got := md.Strings("absent"); got != nil {
		t.Errorf("Strings(absent) = %v", got)
	}
	if n, ok := md.Int("minimum-java-version"); !ok || n != 17 {
		t.Errorf("Int(float) = %d, %v", n, ok)
	}
	if n, ok := md.Int("recommended"); !ok || n != 21 {
		t.Errorf("Int(string) = %d, %v", n, ok)
	}
	if _, ok := md.Int("bogus"); ok {
		t.Error("Int(bogus) should fail")
	}
	if !md.Bool("lts") || !md.Bool("lts-string") || md.Bool("absent") {
		t.Error("Bool mismatch")
	}
}
