package transcript

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"ConsensusAnalyzer/internal/domain"
)

func segs(texts ...string) []domain.TranscriptSegment {
	out := make([]domain.TranscriptSegment, 0, len(texts))
	for i, text := range texts {
		out = append(out, domain.TranscriptSegment{Start: float64(i), Text: text})
	}
	return out
}

func TestBoundJoinsFragments(t *testing.T) {
	t.Parallel()

	got := Bound(segs("hello", "  world\n", "", "again"), 100)
	assert.Equal(t, "hello world again", got)
}

func TestBoundStripsCaptionMarkup(t *testing.T) {
	t.Parallel()

	got := Bound(segs(`<font color="#fff">rates</font> are`, "<i>falling</i> &amp; fast", "it&#39;s fine"), 100)
	assert.Equal(t, "rates are falling & fast it's fine", got)
}

func TestBoundNeverExceedsBudget(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, 1, 49, 50, 51, 500, 9000} {
		input := strings.Repeat("a", size)
		got := Bound(segs(input), 50)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), 50+len(Marker), "input size %d", size)
		if size <= 50 {
			assert.Equal(t, input, got)
		} else {
			assert.True(t, strings.HasSuffix(got, Marker))
			assert.Equal(t, 50+len(Marker), utf8.RuneCountInString(got))
		}
	}
}

func TestBoundDefaultBudget(t *testing.T) {
	t.Parallel()

	got := Bound(segs(strings.Repeat("b", DefaultBudget+10)), 0)
	assert.Equal(t, DefaultBudget+len(Marker), utf8.RuneCountInString(got))
}

func TestTruncateCountsRunes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "héé"+Marker, Truncate("hééllo", 3))
	assert.Equal(t, "héé", Truncate("héé", 3))
	assert.True(t, utf8.ValidString(Truncate("日本語のテキスト", 4)))
}
