package match

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"analysis-backend/internal/shared/util"
)

// ErrInvalidRequirements indicates job requirements that fail validation.
var ErrInvalidRequirements = errors.New("invalid job requirements")

// Requirements is the typed job-requirements contract. Field names follow the
// wire keys the callers send (required_skills, min_experience, ...).
type Requirements struct {
	RequiredSkills      []string `json:"requiredSkills" binding:"required"`
	PreferredSkills     []string `json:"preferredSkills,omitempty"`
	MinExperienceMonths int      `json:"minExperienceMonths,omitempty"`
	// MaxExperienceMonths of zero means no upper band.
	MaxExperienceMonths int    `json:"maxExperienceMonths,omitempty"`
	RoleType            string `json:"roleType,omitempty"`
	Industry            string `json:"industry,omitempty"`
}

// Validate checks the invariants the scoring core relies on. Missing required
// skills is an input error, not a vacuous match.
func (r Requirements) Validate() error {
	if len(normalizeSkills(r.RequiredSkills)) == 0 {
		return fmt.Errorf("%w: required skills must be specified", ErrInvalidRequirements)
	}
	if r.MinExperienceMonths < 0 {
		return fmt.Errorf("%w: min experience cannot be negative", ErrInvalidRequirements)
	}
	if r.MaxExperienceMonths < 0 {
		return fmt.Errorf("%w: max experience cannot be negative", ErrInvalidRequirements)
	}
	if r.MaxExperienceMonths > 0 && r.MaxExperienceMonths < r.MinExperienceMonths {
		return fmt.Errorf("%w: max experience below min experience", ErrInvalidRequirements)
	}
	return nil
}

// Fingerprint returns a stable digest of the requirements, independent of
// skill-list ordering. It feeds analysis cache keys: any semantic change to
// the requirements must change the fingerprint.
func (r Requirements) Fingerprint() string {
	parts := []string{
		"required=" + strings.Join(normalizeSkills(r.RequiredSkills), ","),
		"preferred=" + strings.Join(normalizeSkills(r.PreferredSkills), ","),
		"min=" + strconv.Itoa(r.MinExperienceMonths),
		"max=" + strconv.Itoa(r.MaxExperienceMonths),
		"role=" + strings.ToLower(strings.TrimSpace(r.RoleType)),
		"industry=" + strings.ToLower(strings.TrimSpace(r.Industry)),
	}
	return util.HashKey(strings.Join(parts, "|"))
}

// normalizeSkills lowercases, trims, deduplicates and sorts a skill list.
func normalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	for _, skill := range skills {
		normalized := strings.ToLower(strings.TrimSpace(skill))
		if normalized == "" {
			continue
		}
		seen[normalized] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for skill := range seen {
		out = append(out, skill)
	}
	sort.Strings(out)
	return out
}
