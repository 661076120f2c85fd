package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDropsStopwordsAndShortWords(t *testing.T) {
	got := Extract("I was worried about my exams and the placement interviews")
	assert.Equal(t, []string{"worried", "about", "exams", "placement", "interviews"}, got)
}

func TestExtractStripsPunctuationAndDedupes(t *testing.T) {
	got := Extract("Exams, exams! EXAMS... hostel food?")
	assert.Equal(t, []string{"exams", "hostel", "food"}, got)
}

func TestExtractCapsAtFive(t *testing.T) {
	got := Extract("alpha bravo charlie delta echoes foxtrot golf")
	assert.Len(t, got, MaxPerMessage)
	assert.Equal(t, "alpha", got[0])
}

func TestExtractEmpty(t *testing.T) {
	assert.Empty(t, Extract("   "))
	assert.Empty(t, Extract("I am ok"))
}

func TestMergeMovesRepeatsToEnd(t *testing.T) {
	got := Merge([]string{"exams", "family", "sleep"}, []string{"family", "friends"}, 0)
	assert.Equal(t, []string{"exams", "sleep", "family", "friends"}, got)
}

func TestMergeTrimsOldest(t *testing.T) {
	got := Merge([]string{"one", "two", "three"}, []string{"four"}, 3)
	assert.Equal(t, []string{"two", "three", "four"}, got)
}

func TestMergeNilInputs(t *testing.T) {
	assert.Empty(t, Merge(nil, nil, 5))
	assert.Equal(t, []string{"sleep"}, Merge(nil, []string{"sleep", ""}, 5))
}
