package catalogcmd

import (
	"strconv"
	"strings"

	"launcher/internal/cli/output"
	"launcher/internal/domain"
)

type streamList []domain.StreamInfo

func (l streamList) IDs() []string {
	ids := make([]string, len(l))
	for i, s := range l {
		ids[i] = s.Key
	}
	return ids
}

func (l streamList) TableData() *output.Table {
	t := output.NewTable("key", "platform", "core", "status", "java", "recommended", "lts")
	for _, s := range l {
		t.AddRow(
			s.Key,
			s.PlatformVersion,
			s.CoreVersion,
			s.Status,
			javaVersions(s.JavaCompatibility),
			yesNo(s.Recommended),
			yesNo(s.LTS),
		)
	}
	return t
}

type extensionList []domain.ExtensionInfo

func (l extensionList) IDs() []string {
	ids := make([]string, len(l))
	for i, e := range l {
		ids[i] = e.ID
	}
	return ids
}

func (l extensionList) TableData() *output.Table {
	t := output.NewTable("id", "name", "category", "version", "platform")
	for _, e := range l {
		t.AddRow(e.ID, e.Name, e.Category, e.Version, yesNo(e.Platform))
	}
	return t
}

type presetList []domain.Preset

func (l presetList) IDs() []string {
	ids := make([]string, len(l))
	for i, p := range l {
		ids[i] = p.Key
	}
	return ids
}

func (l presetList) TableData() *output.Table {
	t := output.NewTable("key", "title", "extensions")
	for _, p := range l {
		t.AddRow(p.Key, p.Title, strings.Join(p.Extensions, ", "))
	}
	return t
}

// resolution is the outcome of a resolve command.
type resolution struct {
	StreamKey   string   `json:"streamKey" yaml:"stream_key"`
	Extensions  []string `json:"extensions" yaml:"extensions"`
	JavaVersion int      `json:"javaVersion" yaml:"java_version"`
	BuildTool   string   `json:"buildTool" yaml:"build_tool"`
	GroupID     string   `json:"groupId" yaml:"group_id"`
	ArtifactID  string   `json:"artifactId" yaml:"artifact_id"`
	Version     string   `json:"version" yaml:"version"`
	NoCode      bool     `json:"noCode" yaml:"no_code"`
}

func (r resolution) IDs() []string {
	return r.Extensions
}

func (r resolution) TableData() *output.Table {
	t := output.NewTable("field", "value")
	t.AddRow("stream", r.StreamKey)
	t.AddRow("java", strconv.Itoa(r.JavaVersion))
	t.AddRow("build tool", r.BuildTool)
	t.AddRow("coordinates", r.GroupID+":"+r.ArtifactID+":"+r.Version)
	t.AddRow("no code", yesNo(r.NoCode))
	for _, ext := range r.Extensions {
		t.AddRow("extension", ext)
	}
	return t
}

func javaVersions(j domain.JavaCompatibility) string {
	parts := make([]string, len(j.Versions))
	for i, v := range j.Versions {
		s := strconv.Itoa(v)
		if v == j.Recommended {
			s += "*"
		}
		parts[i] = s
	}
	return strings.Join(parts, ",")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
