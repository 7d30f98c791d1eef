package generator

import (
	"fmt"
	"regexp"
	"strings"

	"launcher/internal/domain"
)

// BuildTool selects the build system of a generated project.
type BuildTool string

const (
	BuildToolMaven           BuildTool = "MAVEN"
	BuildToolGradle          BuildTool = "GRADLE"
	BuildToolGradleKotlinDSL BuildTool = "GRADLE_KOTLIN_DSL"
)

// IsValid reports whether the build tool is known.
func (b BuildTool) IsValid() bool {
	switch b {
	case BuildToolMaven, BuildToolGradle, BuildToolGradleKotlinDSL:
		return true
	}
	return false
}

// ParseBuildTool parses a build tool name case-insensitively. An empty name
// yields the default, Maven.
func ParseBuildTool(s string) (BuildTool, error) {
	if s == "" {
		return DefaultBuildTool, nil
	}
	b := BuildTool(strings.ToUpper(strings.TrimSpace(s)))
	if !b.IsValid() {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidBuildTool, s)
	}
	return b, nil
}

// Project defaults.
const (
	DefaultGroupID    = "org.acme"
	DefaultArtifactID = "code-with-quarkus"
	DefaultVersion    = "1.0.0-SNAPSHOT"
	DefaultBuildTool  = BuildToolMaven
)

// MaxLTSSupportedByKotlin is the highest Java version Kotlin and Scala
// projects may target.
const MaxLTSSupportedByKotlin = 21

var (
	groupIDPattern    = regexp.MustCompile(`^([a-zA-Z_$][a-zA-Z\d_$]*\.)*[a-zA-Z_$][a-zA-Z\d_$]*$`)
	artifactIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-._]*$`)
)

// jvmLanguagePrefixes mark extensions that switch a project away from Java.
var jvmLanguagePrefixes = []string{"io.quarkus:quarkus-kotlin", "io.quarkus:quarkus-scala"}

// Request describes a project to generate.
type Request struct {
	// Platform is the stream the project is generated against.
	Platform *domain.PlatformInfo

	// Extensions holds canonical extension ids as returned by
	// PlatformInfo.ResolveExtensions.
	Extensions []string

	JavaVersion int
	BuildTool   BuildTool
	GroupID     string
	ArtifactID  string
	Version     string
	NoCode      bool

	// OutputDir is the directory the project is written to.
	OutputDir string
}

// ApplyDefaults fills unset fields. The Java version defaults to the stream's
// recommended version.
func (r *Request) ApplyDefaults() {
	if r.GroupID == "" {
		r.GroupID = DefaultGroupID
	}
	if r.ArtifactID == "" {
		r.ArtifactID = DefaultArtifactID
	}
	if r.Version == "" {
		r.Version = DefaultVersion
	}
	if r.BuildTool == "" {
		r.BuildTool = DefaultBuildTool
	}
	if r.JavaVersion == 0 && r.Platform != nil {
		r.JavaVersion = r.Platform.Stream().JavaCompatibility.Recommended
	}
}

// UsesJVMLanguage reports whether any extension selects Kotlin or Scala.
func (r *Request) UsesJVMLanguage() bool {
	for _, ext := range r.Extensions {
		for _, prefix := range jvmLanguagePrefixes {
			if strings.HasPrefix(ext, prefix) {
				return true
			}
		}
	}
	return false
}

// ValidateRequest checks a defaulted request against its stream.
func ValidateRequest(r *Request) error {
	if r.Platform == nil {
		return fmt.Errorf("%w: no stream selected", domain.ErrInvalidProject)
	}
	if !groupIDPattern.MatchString(r.GroupID) {
		return fmt.Errorf("%w: invalid group id %q", domain.ErrInvalidProject, r.GroupID)
	}
	if !artifactIDPattern.MatchString(r.ArtifactID) {
		return fmt.Errorf("%w: invalid artifact id %q", domain.ErrInvalidProject, r.ArtifactID)
	}
	if !r.BuildTool.IsValid() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidBuildTool, r.BuildTool)
	}

	compat := r.Platform.Stream().JavaCompatibility
	if !compat.Supports(r.JavaVersion) {
		return fmt.Errorf("%w: this Java version is not compatible with this stream (%v): %d",
			domain.ErrInvalidJavaVersion, compat.Versions, r.JavaVersion)
	}
	if r.UsesJVMLanguage() && r.JavaVersion > MaxLTSSupportedByKotlin {
		return fmt.Errorf("%w: this Java version is not yet compatible with Kotlin and Scala (max: %d): %d",
			domain.ErrInvalidJavaVersion, MaxLTSSupportedByKotlin, r.JavaVersion)
	}
	return nil
}
