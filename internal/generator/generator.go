// Package generator defines the contract of the project generator the catalog
// hands resolved extension sets to, together with a noop and an exec-based
// implementation.
package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Generator writes a project for a validated Request into Request.OutputDir.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// Result describes a generated project.
type Result struct {
	// Dir is the project root.
	Dir string

	// Files lists the generated files relative to Dir.
	Files []string
}

// ManifestFile is the file written by NoopGenerator.
const ManifestFile = "launcher-project.yaml"

// Manifest is the project description written by NoopGenerator and handed to
// ExecGenerator commands.
type Manifest struct {
	Stream      string   `yaml:"stream" json:"stream"`
	CoreVersion string   `yaml:"coreVersion" json:"coreVersion"`
	GroupID     string   `yaml:"groupId" json:"groupId"`
	ArtifactID  string   `yaml:"artifactId" json:"artifactId"`
	Version     string   `yaml:"version" json:"version"`
	BuildTool   string   `yaml:"buildTool" json:"buildTool"`
	JavaVersion int      `yaml:"javaVersion" json:"javaVersion"`
	NoCode      bool     `yaml:"noCode" json:"noCode"`
	Extensions  []string `yaml:"extensions" json:"extensions"`
}

// NewManifest describes req.
func NewManifest(req Request) Manifest {
	stream := req.Platform.Stream()
	return Manifest{
		Stream:      stream.Key,
		CoreVersion: stream.CoreVersion,
		GroupID:     req.GroupID,
		ArtifactID:  req.ArtifactID,
		Version:     req.Version,
		BuildTool:   string(req.BuildTool),
		JavaVersion: req.JavaVersion,
		NoCode:      req.NoCode,
		Extensions:  req.Extensions,
	}
}

// NoopGenerator validates requests and only writes a manifest describing the
// project. It backs validation probes when no real generator is configured.
type NoopGenerator struct{}

// Generate implements Generator.
func (NoopGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req.ApplyDefaults()
	if err := ValidateRequest(&req); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	data, err := yaml.Marshal(NewManifest(req))
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(req.OutputDir, ManifestFile), data, 0644); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	return &Result{Dir: req.OutputDir, Files: []string{ManifestFile}}, nil
}
