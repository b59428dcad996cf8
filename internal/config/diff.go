package config

import "maps"

// LiveSections are applied on reload without a restart.
var LiveSections = map[string]bool{"logging": true}

// ChangedSections lists the top-level sections that differ between two
// configs, in declaration order. Values are compared, never logged, so
// secrets stay out of the output.
func ChangedSections(oldCfg, newCfg *Config) []string {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var out []string
	add := func(name string, differ bool) {
		if differ {
			out = append(out, name)
		}
	}
	add("practicum", oldCfg.Practicum != newCfg.Practicum)
	add("telegram", oldCfg.Telegram != newCfg.Telegram)
	add("poll", oldCfg.Poll != newCfg.Poll)
	add("statuses", !maps.Equal(oldCfg.Statuses, newCfg.Statuses))
	add("notifier", oldCfg.Notifier != newCfg.Notifier)
	add("logging", oldCfg.Logging != newCfg.Logging)
	add("storage", oldCfg.Storage != newCfg.Storage)
	add("metrics", oldCfg.Metrics != newCfg.Metrics)
	return out
}

// RestartRequired filters sections down to the ones a reload cannot apply.
func RestartRequired(sections []string) []string {
	var out []string
	for _, s := range sections {
		if !LiveSections[s] {
			out = append(out, s)
		}
	}
	return out
}
