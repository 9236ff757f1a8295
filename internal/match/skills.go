// Package match scores a candidate's skill set against a job's requirements.
//
// The similarity signal is textual (TF-IDF cosine over the concatenated skill
// lists) while gap reporting is set-exact: similarity measures aggregate
// closeness, gap analysis must name concrete missing skills.
package match

import (
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"analysis-backend/internal/shared/telemetry"
)

// Skill list weights for the overall score.
const (
	weightRequired  = 1.0
	weightPreferred = 0.5

	// memoSize bounds the similarity memo. The original kept an unbounded
	// process-lifetime map; an LRU keeps the hot pairs without the growth.
	memoSize = 1024
)

// Recommendation priorities, High sorts before Medium.
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
)

// prerequisites maps a skill to the skills usually needed before acquiring
// it. Entries missing from the table simply yield no prerequisites.
var prerequisites = map[string][]string{
	"machine learning": {"python", "statistics", "mathematics"},
	"deep learning":    {"machine learning", "python"},
	"kubernetes":       {"docker", "linux"},
	"react":            {"javascript", "html", "css"},
	"nodejs":           {"javascript"},
	"aws":              {"cloud computing"},
}

// Coverage holds per-list coverage percentages in [0,100].
type Coverage struct {
	Required  float64 `json:"required"`
	Preferred float64 `json:"preferred"`
}

// Recommendation is a single prioritized remediation entry.
type Recommendation struct {
	Skill                    string   `json:"skill"`
	Priority                 string   `json:"priority"`
	Rationale                string   `json:"rationale"`
	EstimatedAcquisitionTime string   `json:"estimatedAcquisitionTime"`
	Prerequisites            []string `json:"prerequisites"`
}

// Result is the full skill-match outcome for one candidate/requirements pair.
type Result struct {
	OverallMatchScore    float64          `json:"overallMatchScore"`
	RequiredSkillsScore  float64          `json:"requiredSkillsScore"`
	PreferredSkillsScore float64          `json:"preferredSkillsScore"`
	ConfidenceScore      float64          `json:"confidenceScore"`
	MatchedRequired      []string         `json:"matchedRequired"`
	MatchedPreferred     []string         `json:"matchedPreferred"`
	MissingCritical      []string         `json:"missingCritical"`
	MissingPreferred     []string         `json:"missingPreferred"`
	Coverage             Coverage         `json:"coverage"`
	Recommendations      []Recommendation `json:"recommendations"`
}

// Matcher computes skill-match results. Safe for concurrent use.
type Matcher struct {
	memo *lru.Cache[string, float64]
}

// NewMatcher constructs a Matcher with a bounded similarity memo.
func NewMatcher() *Matcher {
	memo, err := lru.New[string, float64](memoSize)
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(err)
	}
	return &Matcher{memo: memo}
}

// Match scores candidateSkills against the requirement lists. Candidate
// skills are expected normalized (profile.AllSkills); requirement lists are
// normalized here.
func (m *Matcher) Match(candidateSkills []string, req Requirements) Result {
	required := normalizeSkills(req.RequiredSkills)
	preferred := normalizeSkills(req.PreferredSkills)
	candidate := normalizeSkills(candidateSkills)

	requiredScore := 1.0
	if len(required) > 0 {
		requiredScore = m.similarity(candidate, required)
	}
	preferredScore := 1.0
	if len(preferred) > 0 {
		preferredScore = m.similarity(candidate, preferred)
	}

	overall := (requiredScore*weightRequired + preferredScore*weightPreferred) /
		(weightRequired + weightPreferred)

	candidateSet := make(map[string]struct{}, len(candidate))
	for _, skill := range candidate {
		candidateSet[skill] = struct{}{}
	}
	matchedRequired, missingRequired := splitBySet(required, candidateSet)
	matchedPreferred, missingPreferred := splitBySet(preferred, candidateSet)

	requiredCoverage := coverageRatio(len(matchedRequired), len(required))
	preferredCoverage := coverageRatio(len(matchedPreferred), len(preferred))

	confidence := clamp01(overall*0.4 + requiredCoverage*0.4 + preferredCoverage*0.2)

	return Result{
		OverallMatchScore:    round2(overall),
		RequiredSkillsScore:  round2(requiredScore),
		PreferredSkillsScore: round2(preferredScore),
		ConfidenceScore:      round2(confidence),
		MatchedRequired:      matchedRequired,
		MatchedPreferred:     matchedPreferred,
		MissingCritical:      missingRequired,
		MissingPreferred:     missingPreferred,
		Coverage: Coverage{
			Required:  round1(requiredCoverage * 100),
			Preferred: round1(preferredCoverage * 100),
		},
		Recommendations: recommend(missingRequired, missingPreferred, candidateSet),
	}
}

// similarity returns the TF-IDF cosine similarity of two normalized skill
// lists in [0,1]. Vectorization failure degrades to 0.0 so one bad skill
// string cannot abort a batch.
func (m *Matcher) similarity(skillsA, skillsB []string) float64 {
	key := strings.Join(skillsA, ",") + "|" + strings.Join(skillsB, ",")
	if score, ok := m.memo.Get(key); ok {
		return score
	}

	score, err := tfidfCosine(strings.Join(skillsA, " "), strings.Join(skillsB, " "))
	if err != nil {
		telemetry.Error("skill.similarity_failed", map[string]any{
			"error": err.Error(),
		})
		score = 0.0
	}

	m.memo.Add(key, score)
	return score
}

// splitBySet partitions skills into (present, missing) against the candidate
// set, preserving the input order.
func splitBySet(skills []string, candidate map[string]struct{}) (matched, missing []string) {
	matched = make([]string, 0, len(skills))
	missing = make([]string, 0)
	for _, skill := range skills {
		if _, ok := candidate[skill]; ok {
			matched = append(matched, skill)
		} else {
			missing = append(missing, skill)
		}
	}
	return matched, missing
}

// recommend builds the prioritized remediation list: every missing required
// skill first (High), then every missing preferred skill (Medium), relative
// order preserved within each tier.
func recommend(missingRequired, missingPreferred []string, candidate map[string]struct{}) []Recommendation {
	out := make([]Recommendation, 0, len(missingRequired)+len(missingPreferred))
	for _, skill := range missingRequired {
		out = append(out, Recommendation{
			Skill:                    skill,
			Priority:                 PriorityHigh,
			Rationale:                "Critical required skill for the role",
			EstimatedAcquisitionTime: "1-3 months",
			Prerequisites:            missingPrerequisites(skill, candidate),
		})
	}
	for _, skill := range missingPreferred {
		out = append(out, Recommendation{
			Skill:                    skill,
			Priority:                 PriorityMedium,
			Rationale:                "Preferred skill that would strengthen profile",
			EstimatedAcquisitionTime: "1-2 months",
			Prerequisites:            missingPrerequisites(skill, candidate),
		})
	}
	return out
}

// missingPrerequisites returns the prerequisites for a skill the candidate
// does not already have.
func missingPrerequisites(skill string, candidate map[string]struct{}) []string {
	out := []string{}
	for _, prereq := range prerequisites[strings.ToLower(skill)] {
		if _, ok := candidate[prereq]; !ok {
			out = append(out, prereq)
		}
	}
	return out
}

func coverageRatio(matched, total int) float64 {
	if total == 0 {
		return 1.0
	}
	return float64(matched) / float64(total)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
