package insurance

import (
	"testing"

	"github.com/Roan215/Atlas-Frontend/pkg/models"
)

func record(id int64, first, last string, age int) models.InsuranceRecord {
	return models.InsuranceRecord{
		ID:                  id,
		PolicyNumber:        "POL",
		SubscriberFirstName: first,
		SubscriberLastName:  last,
		SubscriberAge:       age,
	}
}

func TestDefaultMatchConfig(t *testing.T) {
	cfg := DefaultMatchConfig()

	totalWeight := cfg.NameWeight + cfg.AgeWeight
	if totalWeight < 0.9 || totalWeight > 1.1 {
		t.Errorf("weights should sum to approximately 1.0, got %f", totalWeight)
	}
	if cfg.MinScore <= 0 || cfg.MinScore >= 1 {
		t.Errorf("min score should fall inside (0, 1), got %f", cfg.MinScore)
	}
}

func TestRank_ExactMatchFirst(t *testing.T) {
	m := NewMatcher(nil)
	patient := &models.Patient{FirstName: "Jane", LastName: "Doe", Age: 34}

	candidates := m.Rank(patient, []models.InsuranceRecord{
		record(1, "John", "Doe", 60),
		record(2, "Jane", "Doe", 34),
		record(3, "Janet", "Doe", 33),
	})

	if len(candidates) == 0 {
		t.Fatal("expected candidates")
	}
	if candidates[0].Record.ID != 2 {
		t.Errorf("best candidate = %d, want 2", candidates[0].Record.ID)
	}
	if !candidates[0].Exact {
		t.Error("exact subscriber match should be flagged")
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Score > candidates[i-1].Score {
			t.Errorf("candidates not ordered by score at %d", i)
		}
		if candidates[i].Exact {
			t.Errorf("candidate %d flagged exact", candidates[i].Record.ID)
		}
	}
}

func TestRank_DropsPoorMatches(t *testing.T) {
	m := NewMatcher(nil)
	patient := &models.Patient{FirstName: "Jane", LastName: "Doe", Age: 34}

	candidates := m.Rank(patient, []models.InsuranceRecord{
		record(1, "Xavier", "Quintero", 80),
	})
	if len(candidates) != 0 {
		t.Errorf("unrelated subscriber should be dropped, got %+v", candidates)
	}
}

func TestRank_NilPatientPassesThrough(t *testing.T) {
	m := NewMatcher(nil)
	records := []models.InsuranceRecord{
		record(1, "A", "B", 1),
		record(2, "C", "D", 2),
	}

	candidates := m.Rank(nil, records)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	for i, c := range candidates {
		if c.Record.ID != records[i].ID {
			t.Errorf("order changed at %d", i)
		}
		if c.Score != 0 || c.Exact {
			t.Errorf("unscored candidate has score %f", c.Score)
		}
	}
}

func TestRank_PhoneticSpelling(t *testing.T) {
	m := NewMatcher(nil)
	patient := &models.Patient{FirstName: "Katherine", LastName: "Smith", Age: 40}

	candidates := m.Rank(patient, []models.InsuranceRecord{
		record(1, "Catherine", "Smyth", 41),
	})
	if len(candidates) != 1 {
		t.Fatalf("phonetic spelling should survive the floor, got %d candidates", len(candidates))
	}
	if candidates[0].Exact {
		t.Error("phonetic match is not exact")
	}
}

func TestRank_UnknownAgeScoresNeutral(t *testing.T) {
	m := NewMatcher(nil)
	patient := &models.Patient{FirstName: "Jane", LastName: "Doe"}

	candidates := m.Rank(patient, []models.InsuranceRecord{
		record(1, "Jane", "Doe", 34),
	})
	if len(candidates) != 1 {
		t.Fatal("expected one candidate")
	}
	// Full name score plus a neutral age contribution.
	want := 1*0.7 + 0.5*0.3
	if diff := candidates[0].Score - want; diff > 0.001 || diff < -0.001 {
		t.Errorf("score = %f, want %f", candidates[0].Score, want)
	}
}

func TestCompareStrings(t *testing.T) {
	tests := []struct {
		s1, s2 string
		min    float64
		max    float64
	}{
		{"doe", "doe", 1, 1},
		{"Doe", "doe", 1, 1},
		{"doe", "dow", 0.6, 0.9},
		{"", "", 0, 0},
		{"doe", "", 0, 0},
	}
	for _, tt := range tests {
		got := compareStrings(tt.s1, tt.s2)
		if got < tt.min || got > tt.max {
			t.Errorf("compareStrings(%q, %q) = %f, want within [%f, %f]", tt.s1, tt.s2, got, tt.min, tt.max)
		}
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"doe", "doe", 0},
	}
	for _, tt := range tests {
		if got := levenshteinDistance(tt.s1, tt.s2); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.s1, tt.s2, got, tt.want)
		}
	}
}
