package workflow

import "maps"

// Config sections and keys used by the execution engine.
const (
	SectionExecution = "execution"
	SectionLogging   = "logging"

	KeyCrashdumpDir    = "crashdump_dir"
	KeyCrashfileFormat = "crashfile_format"
	KeyStopOnFirst     = "stop_on_first_crash"
	KeyReportletsDir   = "reportlets_dir"
	KeyWorkflowLevel   = "workflow_level"
)

// Config is a two-level execution configuration: section, then key.
// It is a plain map, so copy it with Clone before handing it to anyone who
// might keep it.
type Config map[string]map[string]string

// DefaultConfig returns the baseline every workflow starts from.
func DefaultConfig() Config {
	return Config{
		SectionExecution: {
			KeyCrashfileFormat: "txt",
			KeyStopOnFirst:     "true",
		},
		SectionLogging: {
			KeyWorkflowLevel: "INFO",
		},
	}
}

// Clone returns a deep copy; no inner map is shared with c.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for section, kv := range c {
		out[section] = maps.Clone(kv)
		if out[section] == nil {
			out[section] = map[string]string{}
		}
	}
	return out
}

// Get returns the value for section/key, or "" when unset.
func (c Config) Get(section, key string) string {
	return c[section][key]
}

// Set stores a value in place, creating the section if needed.
func (c Config) Set(section, key, value string) {
	if c[section] == nil {
		c[section] = map[string]string{}
	}
	c[section][key] = value
}

// With returns a copy of c with section/key set to value. c is unchanged.
func (c Config) With(section, key, value string) Config {
	out := c.Clone()
	if out == nil {
		out = Config{}
	}
	out.Set(section, key, value)
	return out
}
