package ocr

import "fmt"

// Profile is a named preset of OCR engine tuning options. The set is fixed,
// clients cannot extend it at runtime.
type Profile string

const (
	ProfilePrinted     Profile = "printed"
	ProfileHandwriting Profile = "handwriting"
	ProfileLegal       Profile = "legal"
	ProfileScanned     Profile = "scanned"
	ProfileEnglish     Profile = "english"
	ProfileMultilang   Profile = "multilang"
)

// EngineConfig holds the construction options for one profile. Variables are
// backend tuning parameters that the minimal fallback configuration drops.
type EngineConfig struct {
	Language    string
	UseAngleCls bool
	Variables   map[string]string
}

// Minimal returns the reduced fallback configuration, keeping only the
// language and the angle classification flag.
func (c EngineConfig) Minimal() EngineConfig {
	return EngineConfig{Language: c.Language, UseAngleCls: c.UseAngleCls}
}

// Candidates returns the ordered list of configurations to attempt at engine
// construction: the full config, then the minimal fallback when it differs.
func (c EngineConfig) Candidates() []EngineConfig {
	if len(c.Variables) == 0 {
		return []EngineConfig{c}
	}
	return []EngineConfig{c, c.Minimal()}
}

// profileConfigs is the fixed profile → engine configuration table, defined
// at process start and never mutated.
var profileConfigs = map[Profile]EngineConfig{
	ProfilePrinted:     {Language: "fra", UseAngleCls: true},
	ProfileHandwriting: {Language: "fra", UseAngleCls: true, Variables: map[string]string{"textord_noise_rejrows": "0"}},
	ProfileLegal:       {Language: "fra", UseAngleCls: true, Variables: map[string]string{"textord_min_linesize": "2.5"}},
	ProfileScanned:     {Language: "fra", UseAngleCls: true, Variables: map[string]string{"textord_heavy_nr": "1"}},
	ProfileEnglish:     {Language: "eng", UseAngleCls: true},
	ProfileMultilang:   {Language: "fra+eng", UseAngleCls: true},
}

// profileOrder fixes the presentation order of profiles in /health output.
var profileOrder = []Profile{
	ProfilePrinted,
	ProfileHandwriting,
	ProfileLegal,
	ProfileScanned,
	ProfileEnglish,
	ProfileMultilang,
}

// ParseProfile validates a profile query value.
func ParseProfile(value string) (Profile, error) {
	p := Profile(value)
	if _, ok := profileConfigs[p]; !ok {
		return "", fmt.Errorf("unknown OCR profile: %q", value)
	}
	return p, nil
}

// ProfileNames lists the supported profiles in stable order.
func ProfileNames() []string {
	names := make([]string, 0, len(profileOrder))
	for _, p := range profileOrder {
		names = append(names, string(p))
	}
	return names
}
