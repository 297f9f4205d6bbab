package redaction

import "strings"

// Sensitivity levels.
const (
	LevelPublic       = 0
	LevelInternal     = 1
	LevelConfidential = 2
	LevelSecret       = 3
)

// Policy is the masking behaviour for one sensitivity level.
type Policy struct {
	Level       int    `json:"level"`
	Name        string `json:"name"`
	MaskPII     bool   `json:"mask_pii"`
	MaskSecrets bool   `json:"mask_secrets"`
	RequirePIN  bool   `json:"require_pin"`
}

var policies = [...]Policy{
	LevelPublic:       {Level: LevelPublic, Name: "Public"},
	LevelInternal:     {Level: LevelInternal, Name: "Internal", MaskSecrets: true},
	LevelConfidential: {Level: LevelConfidential, Name: "Confidential", MaskPII: true, MaskSecrets: true, RequirePIN: true},
	LevelSecret:       {Level: LevelSecret, Name: "Secret", MaskPII: true, MaskSecrets: true, RequirePIN: true},
}

// ForLevel returns the policy for a sensitivity level. Levels outside 0-3
// get the Confidential policy.
func ForLevel(level int) Policy {
	if !ValidLevel(level) {
		return policies[LevelConfidential]
	}
	return policies[level]
}

// ValidLevel reports whether level is one of the defined sensitivity levels.
func ValidLevel(level int) bool {
	return level >= LevelPublic && level <= LevelSecret
}

// PolicyByName resolves a policy name case-insensitively. Unknown names get
// the Confidential policy and ok is false.
func PolicyByName(name string) (p Policy, ok bool) {
	for _, p := range policies {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return policies[LevelConfidential], false
}

// Policies returns the policy table ordered by level.
func Policies() []Policy {
	out := make([]Policy, len(policies))
	copy(out, policies[:])
	return out
}
