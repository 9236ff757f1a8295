package match

import (
	"errors"
	"reflect"
	"testing"
)

func TestMatchIdenticalSkills(t *testing.T) {
	m := NewMatcher()
	req := Requirements{RequiredSkills: []string{"python", "golang"}}

	result := m.Match([]string{"golang", "python"}, req)

	if result.RequiredSkillsScore != 1.0 {
		t.Fatalf("required score = %v, want 1.0", result.RequiredSkillsScore)
	}
	if result.OverallMatchScore != 1.0 {
		t.Fatalf("overall score = %v, want 1.0", result.OverallMatchScore)
	}
	if result.ConfidenceScore != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", result.ConfidenceScore)
	}
	if result.Coverage.Required != 100 {
		t.Fatalf("required coverage = %v, want 100", result.Coverage.Required)
	}
	if len(result.MissingCritical) != 0 {
		t.Fatalf("missing critical = %v, want empty", result.MissingCritical)
	}
	if len(result.Recommendations) != 0 {
		t.Fatalf("recommendations = %v, want empty", result.Recommendations)
	}
}

func TestMatchEmptyRequiredListIsVacuouslySatisfied(t *testing.T) {
	m := NewMatcher()
	result := m.Match([]string{"golang"}, Requirements{PreferredSkills: []string{"python"}})

	if result.RequiredSkillsScore != 1.0 {
		t.Fatalf("required score = %v, want 1.0 for empty requirement list", result.RequiredSkillsScore)
	}
	if result.Coverage.Required != 100 {
		t.Fatalf("required coverage = %v, want 100", result.Coverage.Required)
	}
}

func TestMatchDisjointSkills(t *testing.T) {
	m := NewMatcher()
	result := m.Match([]string{"haskell"}, Requirements{RequiredSkills: []string{"golang"}})

	if result.RequiredSkillsScore != 0 {
		t.Fatalf("required score = %v, want 0", result.RequiredSkillsScore)
	}
	if !reflect.DeepEqual(result.MissingCritical, []string{"golang"}) {
		t.Fatalf("missing critical = %v, want [golang]", result.MissingCritical)
	}
}

func TestMatchPartialOverlapScoresBetweenBounds(t *testing.T) {
	m := NewMatcher()
	result := m.Match([]string{"python", "java"}, Requirements{RequiredSkills: []string{"python"}})

	if result.RequiredSkillsScore <= 0 || result.RequiredSkillsScore >= 1 {
		t.Fatalf("required score = %v, want in (0,1)", result.RequiredSkillsScore)
	}
	if result.Coverage.Required != 100 {
		t.Fatalf("required coverage = %v, want 100 (gap analysis is set-exact)", result.Coverage.Required)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	m := NewMatcher()
	a := []string{"python", "machine learning"}
	b := []string{"python", "statistics"}

	// The vectorizer fits on both documents at once, so fit order cannot
	// matter. Pin it.
	if got, want := m.similarity(a, b), m.similarity(b, a); got != want {
		t.Fatalf("similarity not symmetric: %v vs %v", got, want)
	}
}

func TestGapAnalysisIsSetExact(t *testing.T) {
	m := NewMatcher()
	req := Requirements{
		RequiredSkills:  []string{"Python", "AWS", "Docker"},
		PreferredSkills: []string{"Terraform", "Kubernetes"},
	}
	result := m.Match([]string{"python", "docker", "kubernetes"}, req)

	if !reflect.DeepEqual(result.MatchedRequired, []string{"docker", "python"}) {
		t.Fatalf("matched required = %v", result.MatchedRequired)
	}
	if !reflect.DeepEqual(result.MissingCritical, []string{"aws"}) {
		t.Fatalf("missing critical = %v", result.MissingCritical)
	}
	if !reflect.DeepEqual(result.MatchedPreferred, []string{"kubernetes"}) {
		t.Fatalf("matched preferred = %v", result.MatchedPreferred)
	}
	if !reflect.DeepEqual(result.MissingPreferred, []string{"terraform"}) {
		t.Fatalf("missing preferred = %v", result.MissingPreferred)
	}
	if result.Coverage.Required != 66.7 {
		t.Fatalf("required coverage = %v, want 66.7", result.Coverage.Required)
	}
	if result.Coverage.Preferred != 50 {
		t.Fatalf("preferred coverage = %v, want 50", result.Coverage.Preferred)
	}
}

func TestRecommendationsOrderHighBeforeMedium(t *testing.T) {
	m := NewMatcher()
	req := Requirements{
		RequiredSkills:  []string{"aws"},
		PreferredSkills: []string{"terraform"},
	}
	result := m.Match([]string{"python"}, req)

	if len(result.Recommendations) != 2 {
		t.Fatalf("recommendations = %v, want 2 entries", result.Recommendations)
	}
	first, second := result.Recommendations[0], result.Recommendations[1]
	if first.Skill != "aws" || first.Priority != PriorityHigh {
		t.Fatalf("first recommendation = %+v, want aws/High", first)
	}
	if second.Skill != "terraform" || second.Priority != PriorityMedium {
		t.Fatalf("second recommendation = %+v, want terraform/Medium", second)
	}
	if !reflect.DeepEqual(first.Prerequisites, []string{"cloud computing"}) {
		t.Fatalf("aws prerequisites = %v", first.Prerequisites)
	}
}

func TestRecommendationPrerequisitesExcludeExistingSkills(t *testing.T) {
	m := NewMatcher()
	req := Requirements{RequiredSkills: []string{"kubernetes"}}
	result := m.Match([]string{"docker"}, req)

	if len(result.Recommendations) != 1 {
		t.Fatalf("recommendations = %v, want 1 entry", result.Recommendations)
	}
	if got := result.Recommendations[0].Prerequisites; !reflect.DeepEqual(got, []string{"linux"}) {
		t.Fatalf("prerequisites = %v, want [linux] (docker already held)", got)
	}
}

func TestSimilarityMemoized(t *testing.T) {
	m := NewMatcher()
	a := []string{"python"}
	b := []string{"python", "golang"}

	first := m.similarity(a, b)
	if _, ok := m.memo.Get("python|python,golang"); !ok {
		t.Fatalf("expected memo entry after first similarity call")
	}
	if second := m.similarity(a, b); second != first {
		t.Fatalf("memoized similarity = %v, first = %v", second, first)
	}
}

func TestTFIDFEmptyVocabulary(t *testing.T) {
	if _, err := tfidfCosine("", ""); !errors.Is(err, ErrEmptyVocabulary) {
		t.Fatalf("expected ErrEmptyVocabulary, got %v", err)
	}

	// The matcher degrades vectorization failures to 0.0.
	m := NewMatcher()
	if got := m.similarity(nil, nil); got != 0 {
		t.Fatalf("similarity on empty input = %v, want 0", got)
	}
}

func TestRequirementsValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     Requirements
		wantErr bool
	}{
		{name: "valid", req: Requirements{RequiredSkills: []string{"go"}, MinExperienceMonths: 12}},
		{name: "missing required skills", req: Requirements{PreferredSkills: []string{"go"}}, wantErr: true},
		{name: "blank required skills", req: Requirements{RequiredSkills: []string{"  ", ""}}, wantErr: true},
		{name: "negative min", req: Requirements{RequiredSkills: []string{"go"}, MinExperienceMonths: -1}, wantErr: true},
		{name: "max below min", req: Requirements{RequiredSkills: []string{"go"}, MinExperienceMonths: 24, MaxExperienceMonths: 12}, wantErr: true},
	}
	for _, tc := range cases {
		err := tc.req.Validate()
		if tc.wantErr && !errors.Is(err, ErrInvalidRequirements) {
			t.Fatalf("%s: expected ErrInvalidRequirements, got %v", tc.name, err)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func TestRequirementsFingerprint(t *testing.T) {
	base := Requirements{RequiredSkills: []string{"go", "python"}, MinExperienceMonths: 12}

	reordered := Requirements{RequiredSkills: []string{"Python", "GO"}, MinExperienceMonths: 12}
	if base.Fingerprint() != reordered.Fingerprint() {
		t.Fatalf("fingerprint should be order- and case-independent")
	}

	extended := Requirements{RequiredSkills: []string{"go", "python", "aws"}, MinExperienceMonths: 12}
	if base.Fingerprint() == extended.Fingerprint() {
		t.Fatalf("adding a required skill must change the fingerprint")
	}

	bumped := base
	bumped.MinExperienceMonths = 24
	if base.Fingerprint() == bumped.Fingerprint() {
		t.Fatalf("changing min experience must change the fingerprint")
	}
}
