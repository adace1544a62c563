package search

import "sort"

// analyzerRegistry maps analyzer identifiers to the engine analyzer names
// they resolve to. It is a statically declared registry populated at
// startup; available analyzers are enumerable without any runtime type
// scanning. The empty engine name means "use the field's own analyzer
// from the index mapping".
var analyzerRegistry = map[string]string{
	"":         "",
	"default":  "",
	"standard": "standard",
	"simple":   "simple",
	"keyword":  "keyword",
	"web":      "web",
	"en":       "en",
	"english":  "en",
}

// RegisterAnalyzer adds an identifier to the registry. Intended for init
// wiring, not concurrent use.
func RegisterAnalyzer(id, engineName string) {
	analyzerRegistry[id] = engineName
}

// ResolveAnalyzer maps an analyzer identifier to an engine analyzer name.
// Unresolved identifiers fall back to the default analyzer rather than
// failing: a stale name in a config file should degrade, not break search.
func ResolveAnalyzer(id string) string {
	if name, ok := analyzerRegistry[id]; ok {
		return name
	}
	return ""
}

// Analyzers returns the registered analyzer identifiers, sorted.
func Analyzers() []string {
	ids := make([]string, 0, len(analyzerRegistry))
	for id := range analyzerRegistry {
		if id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
