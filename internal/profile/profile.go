// Package profile defines the candidate profile consumed by the scoring core.
package profile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrInvalid indicates a profile that fails basic structural validation.
var ErrInvalid = errors.New("invalid profile")

// daysPerMonth is the average month length used for duration rounding.
const daysPerMonth = 30.44

// Experience is a single work-experience entry.
type Experience struct {
	CompanyName string     `json:"companyName"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Location    string     `json:"location,omitempty"`
	Skills      []string   `json:"skills,omitempty"`
}

// Education is a single education entry.
type Education struct {
	Institution  string     `json:"institution"`
	Degree       string     `json:"degree"`
	FieldOfStudy string     `json:"fieldOfStudy,omitempty"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	Grade        float64    `json:"grade,omitempty"`
}

// Profile is a candidate record. It is owned by the caller and treated as
// read-only by the scoring core.
type Profile struct {
	ID             string       `json:"id"`
	LinkedInURL    string       `json:"linkedinUrl,omitempty"`
	FullName       string       `json:"fullName"`
	Headline       string       `json:"headline,omitempty"`
	Summary        string       `json:"summary,omitempty"`
	Location       string       `json:"location,omitempty"`
	Experience     []Experience `json:"experience,omitempty"`
	Education      []Education  `json:"education,omitempty"`
	Skills         []string     `json:"skills,omitempty"`
	Certifications []string     `json:"certifications,omitempty"`
	Languages      []string     `json:"languages,omitempty"`
}

// Validate checks the structural invariants the scoring core relies on.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if strings.TrimSpace(p.FullName) == "" {
		return fmt.Errorf("%w: full name is required", ErrInvalid)
	}
	return nil
}

// DurationMonths returns the entry's length in months, rounded to the nearest
// month. Open-ended entries run to now.
func (e Experience) DurationMonths(now time.Time) int {
	end := now
	if e.EndDate != nil {
		end = *e.EndDate
	}
	return monthsBetween(e.StartDate, end)
}

// TotalExperienceMonths returns total months of experience with overlapping
// entries counted once. Overlaps contribute only their non-overlapping
// extension.
func (p *Profile) TotalExperienceMonths() int {
	return p.totalExperienceAt(time.Now().UTC())
}

func (p *Profile) totalExperienceAt(now time.Time) int {
	if len(p.Experience) == 0 {
		return 0
	}

	sorted := make([]Experience, len(p.Experience))
	copy(sorted, p.Experience)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate)
	})

	total := 0
	var currentEnd time.Time
	for _, exp := range sorted {
		end := now
		if exp.EndDate != nil {
			end = *exp.EndDate
		}
		switch {
		case currentEnd.IsZero():
			total += exp.DurationMonths(now)
			currentEnd = end
		case exp.StartDate.After(currentEnd):
			total += exp.DurationMonths(now)
			currentEnd = end
		case end.After(currentEnd):
			total += monthsBetween(currentEnd, end)
			currentEnd = end
		}
	}
	return total
}

// AllSkills returns the case-normalized, deduplicated union of profile-level
// and per-experience skills, sorted for determinism. Determinism matters
// because the result feeds cache keys.
func (p *Profile) AllSkills() []string {
	seen := make(map[string]struct{}, len(p.Skills))
	add := func(skill string) {
		normalized := strings.ToLower(strings.TrimSpace(skill))
		if normalized == "" {
			return
		}
		seen[normalized] = struct{}{}
	}
	for _, skill := range p.Skills {
		add(skill)
	}
	for _, exp := range p.Experience {
		for _, skill := range exp.Skills {
			add(skill)
		}
	}
	out := make([]string, 0, len(seen))
	for skill := range seen {
		out = append(out, skill)
	}
	sort.Strings(out)
	return out
}

func monthsBetween(start, end time.Time) int {
	days := int(end.Sub(start).Hours() / 24)
	months := int((float64(days) + 15) / daysPerMonth)
	if months < 0 {
		return 0
	}
	return months
}
