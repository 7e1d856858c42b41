package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "bare", raw: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", raw: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "commentary prefix", raw: "Here is your report:\n{\"a\":{\"b\":2}}", want: `{"a":{"b":2}}`},
		{name: "trailing text", raw: "{\"a\":1}\nLet me know if you need more.", want: `{"a":1}`},
		{name: "both sides", raw: "Sure! ```{\"a\":[1,2]}``` done", want: `{"a":[1,2]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractJSONWithoutObject(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "no braces here", "} backwards {", "{ unterminated", "only close }"} {
		_, err := ExtractJSON(raw)
		assert.ErrorIs(t, err, ErrNoJSONObject, "input %q", raw)
	}
}

func TestDecodeValid(t *testing.T) {
	t.Parallel()

	got, err := Decode(`{"summary":"s","sentiment":0.25,"consensus":80,"claims":["x","y"],"highlights":[{"videoId":"v","timestamp":"","explanation":"e","shortSummary":"ss"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "s", got.Summary)
	assert.Equal(t, 0.25, got.Sentiment)
	assert.Equal(t, 80.0, got.Consensus)
	assert.Equal(t, []string{"x", "y"}, got.Claims)
	require.Len(t, got.Highlights, 1)
	assert.Equal(t, "00:00", got.Highlights[0].Timestamp)
}

func TestDecodeSchemaMismatch(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown field":      `{"summary":"s","sentiment":0.1,"extra":true}`,
		"missing summary":    `{"sentiment":0.1}`,
		"blank summary":      `{"summary":"  ","sentiment":0.1}`,
		"missing sentiment":  `{"summary":"s"}`,
		"sentiment range":    `{"summary":"s","sentiment":4}`,
		"consensus range":    `{"summary":"s","sentiment":0.5,"consensus":140}`,
		"wrong claims type":  `{"summary":"s","sentiment":0.5,"claims":"a, b"}`,
		"not json":           `{summary: s}`,
		"two objects glued":  `{"summary":"s","sentiment":0.5} {"summary":"t"}`,
		"string sentiment":   `{"summary":"s","sentiment":"high"}`,
		"highlight bad type": `{"summary":"s","sentiment":0.5,"highlights":[{"timestamp":12}]}`,
	}
	for name, input := range cases {
		_, err := Decode(input)
		assert.ErrorIs(t, err, ErrSchemaMismatch, name)
	}
}
