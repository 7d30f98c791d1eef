package catalog

import (
	"errors"
	"testing"

	"launcher/internal/domain"
)

func TestFilter_Match(t *testing.T) {
	cache, err := newFilterCache()
	if err != nil {
		t.Fatal(err)
	}

	ext := domain.ExtensionInfo{
		ID:           "io.quarkus:quarkus-rest",
		Version:      "3.15.1",
		Name:         "REST",
		ShortName:    "REST",
		Category:     "Web",
		Tags:         []string{"status:stable"},
		Keywords:     []string{"jaxrs", "rest"},
		Order:        3,
		Platform:     true,
		ProvidesCode: true,
	}

	tests := []struct {
		expr    string
		want    bool
		wantErr bool
	}{
		{expr: `ext.platform`, want: true},
		{expr: `ext.id.startsWith("io.quarkus:")`, want: true},
		{expr: `"jaxrs" in ext.keywords && ext.order < 5`, want: true},
		{expr: `ext.category == "Data"`, want: false},
		{expr: `ext.providesCode && !ext.platform`, want: false},
		{expr: `ext.name`, wantErr: true},
		{expr: `ext.missing == 1`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := cache.compile(tt.expr)
			if err != nil {
				t.Fatalf("compile() error = %v", err)
			}
			got, err := f.Match(ext)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidFilter) {
					t.Errorf("Match() error = %v, want ErrInvalidFilter", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterCache_Compile(t *testing.T) {
	cache, err := newFilterCache()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := cache.compile(`ext.id ==`); !errors.Is(err, domain.ErrInvalidFilter) {
		t.Errorf("compile(syntax error) = %v, want ErrInvalidFilter", err)
	}
	if _, err := cache.compile(`unknown.id == "x"`); !errors.Is(err, domain.ErrInvalidFilter) {
		t.Errorf("compile(undeclared) = %v, want ErrInvalidFilter", err)
	}

	a, _ := cache.compile(`ext.platform`)
	b, _ := cache.compile(`ext.platform`)
	if a != b {
		t.Error("compiled filter not cached")
	}
}
