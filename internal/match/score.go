package match

import (
	"strings"

	"github.com/christuckey/scoutarr/internal/services"
	"github.com/pmezard/go-difflib/difflib"
)

// Field score blends token overlap with character-sequence similarity so a
// reordered title ("Theme from X" vs "X Theme") and a near-typo both score
// well.
const (
	tokenWeight    = 0.6
	sequenceWeight = 0.4
)

// Composite weights. Title dominates, artist disambiguates covers, album is
// a tiebreaker.
const (
	titleWeight  = 0.5
	artistWeight = 0.35
	albumWeight  = 0.15
)

// TokenSimilarity is the Jaccard index over whitespace-separated word sets
// of the normalized inputs. Zero when either side has no words.
func TokenSimilarity(a, b string) float64 {
	wordsA := strings.Fields(Normalize(a))
	wordsB := strings.Fields(Normalize(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		setA[w] = true
	}
	setB := make(map[string]bool, len(wordsB))
	for _, w := range wordsB {
		setB[w] = true
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}

// SequenceSimilarity is the Ratcliff/Obershelp ratio over the characters of
// the normalized inputs.
func SequenceSimilarity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)
	matcher := difflib.NewMatcher(strings.Split(na, ""), strings.Split(nb, ""))
	return matcher.Ratio()
}

// FieldScore blends token and sequence similarity for one field pair.
func FieldScore(a, b string) float64 {
	return tokenWeight*TokenSimilarity(a, b) + sequenceWeight*SequenceSimilarity(a, b)
}

// CompositeScore scores a candidate against a track description. The artist
// field is matched against both the candidate's album artist and its
// per-track credit, taking whichever agrees better.
func CompositeScore(track services.TrackDescription, candidate services.CatalogCandidate) float64 {
	artistScore := FieldScore(track.Artist, candidate.Artist)
	if candidate.AlternateArtist != "" {
		if alt := FieldScore(track.Artist, candidate.AlternateArtist); alt > artistScore {
			artistScore = alt
		}
	}

	return titleWeight*FieldScore(track.Title, candidate.Title) +
		artistWeight*artistScore +
		albumWeight*FieldScore(track.Album, candidate.Album)
}
