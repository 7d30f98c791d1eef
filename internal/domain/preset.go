package domain

// Preset is a named, curated extension selection offered to users.
type Preset struct {
	Key        string   `json:"key" yaml:"key" mapstructure:"key"`
	Title      string   `json:"title" yaml:"title" mapstructure:"title"`
	Icon       string   `json:"icon" yaml:"icon" mapstructure:"icon"`
	Extensions []string `json:"extensions" yaml:"extensions" mapstructure:"extensions"`
}

// DefaultPresets are offered unless disabled by configuration.
func DefaultPresets() []Preset {
	return []Preset{
		{
			Key:   "rest-service",
			Title: "REST service",
			Icon:  "icon-rest.svg",
			Extensions: []string{
				"io.quarkus:quarkus-rest",
				"io.quarkus:quarkus-rest-jackson",
			},
		},
		{
			Key:   "db-service",
			Title: "REST service with database",
			Icon:  "icon-db.svg",
			Extensions: []string{
				"io.quarkus:quarkus-hibernate-orm-panache",
				"io.quarkus:quarkus-jdbc-postgresql",
				"io.quarkus:quarkus-rest",
				"io.quarkus:quarkus-rest-jackson",
			},
		},
		{
			Key:   "event-driven-kafka",
			Title: "Event driven service with Kafka",
			Icon:  "icon-kafka.svg",
			Extensions: []string{
				"io.quarkus:quarkus-messaging-kafka",
			},
		},
		{
			Key:   "cli",
			Title: "Command-line tool",
			Icon:  "icon-cli.svg",
			Extensions: []string{
				"io.quarkus:quarkus-picocli",
			},
		},
	}
}

// AvailablePresets returns the presets whose every extension is an exact id
// of the stream.
func AvailablePresets(p *PlatformInfo, presets []Preset) []Preset {
	out := make([]Preset, 0, len(presets))
	for _, preset := range presets {
		ok := true
		for _, id := range preset.Extensions {
			if !p.HasExtension(id) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, preset)
		}
	}
	return out
}
