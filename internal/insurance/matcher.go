// Package insurance ranks insurance search results against the patient
// being linked. The backend search is a broad subscriber-name lookup;
// the matcher scores each candidate policy so the closest subscriber
// surfaces first in the picker.
package insurance

import (
	"sort"
	"strings"

	"github.com/Roan215/Atlas-Frontend/pkg/models"
)

// MatchConfig tunes the candidate scoring.
type MatchConfig struct {
	NameWeight float64
	AgeWeight  float64
	// MinScore is the floor below which a candidate is dropped from
	// the ranked list entirely.
	MinScore float64
	// AgeTolerance is the difference in years at which the age score
	// reaches zero.
	AgeTolerance int
}

// DefaultMatchConfig returns the scoring defaults.
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		NameWeight:   0.7,
		AgeWeight:    0.3,
		MinScore:     0.3,
		AgeTolerance: 10,
	}
}

// Candidate is a scored insurance record.
type Candidate struct {
	Record models.InsuranceRecord `json:"record"`
	Score  float64                `json:"score"`
	// Exact is true when the subscriber name matches the patient
	// exactly, ignoring case.
	Exact bool `json:"exact"`
}

// Matcher scores insurance candidates against a patient.
type Matcher struct {
	config *MatchConfig
}

// NewMatcher creates a new matcher
func NewMatcher(config *MatchConfig) *Matcher {
	if config == nil {
		config = DefaultMatchConfig()
	}
	return &Matcher{config: config}
}

// Rank scores the candidates against the patient and returns them best
// first. Candidates scoring under the configured floor are dropped.
// A nil patient returns the records unscored in their original order.
func (m *Matcher) Rank(patient *models.Patient, records []models.InsuranceRecord) []Candidate {
	candidates := make([]Candidate, 0, len(records))

	if patient == nil {
		for _, record := range records {
			candidates = append(candidates, Candidate{Record: record})
		}
		return candidates
	}

	for _, record := range records {
		score, exact := m.score(patient, &record)
		if score < m.config.MinScore {
			continue
		}
		candidates = append(candidates, Candidate{Record: record, Score: score, Exact: exact})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

func (m *Matcher) score(patient *models.Patient, record *models.InsuranceRecord) (float64, bool) {
	first := compareStrings(patient.FirstName, record.SubscriberFirstName)
	last := compareStrings(patient.LastName, record.SubscriberLastName)
	nameScore := (first + last) / 2
	exact := first == 1 && last == 1

	ageScore := m.compareAges(patient.Age, record.SubscriberAge)

	total := nameScore*m.config.NameWeight + ageScore*m.config.AgeWeight
	return total, exact
}

// compareAges scores age proximity linearly down to zero at the
// configured tolerance. A zero age on either side means unknown and
// scores neutral.
func (m *Matcher) compareAges(a, b int) float64 {
	if a == 0 || b == 0 {
		return 0.5
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	if diff >= m.config.AgeTolerance {
		return 0
	}
	return 1 - float64(diff)/float64(m.config.AgeTolerance)
}

// compareStrings scores two strings by normalized edit distance, with a
// soundex fallback for phonetically equivalent spellings.
func compareStrings(s1, s2 string) float64 {
	s1 = strings.ToLower(strings.TrimSpace(s1))
	s2 = strings.ToLower(strings.TrimSpace(s2))

	if s1 == s2 {
		if s1 == "" {
			return 0
		}
		return 1
	}

	maxLen := len(s1)
	if len(s2) > maxLen {
		maxLen = len(s2)
	}
	if maxLen == 0 {
		return 0
	}

	score := 1 - float64(levenshteinDistance(s1, s2))/float64(maxLen)
	if score < 0.8 && soundex(s1) == soundex(s2) {
		return 0.8
	}
	return score
}

func soundex(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToUpper(strings.TrimSpace(s))
	result := string(s[0])

	codes := map[byte]byte{
		'B': '1', 'F': '1', 'P': '1', 'V': '1',
		'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
		'D': '3', 'T': '3',
		'L': '4',
		'M': '5', 'N': '5',
		'R': '6',
	}

	prevCode := byte('0')
	for i := 1; i < len(s) && len(result) < 4; i++ {
		if code, ok := codes[s[i]]; ok {
			if code != prevCode {
				result += string(code)
				prevCode = code
			}
		} else {
			prevCode = '0'
		}
	}

	for len(result) < 4 {
		result += "0"
	}
	return result
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	d := make([][]int, len(s1)+1)
	for i := range d {
		d[i] = make([]int, len(s2)+1)
	}

	for i := 0; i <= len(s1); i++ {
		d[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		d[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			d[i][j] = minOf(
				d[i-1][j]+1,
				d[i][j-1]+1,
				d[i-1][j-1]+cost,
			)
		}
	}

	return d[len(s1)][len(s2)]
}

func minOf(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
