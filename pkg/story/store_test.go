package story_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// records builds n well-formed story records.
func records(n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{
			"id":   i + 1,
			"text": fmt.Sprintf("step %d", i+1),
			"a":    fmt.Sprintf("a%d", i+1),
			"b":    fmt.Sprintf("b%d", i+1),
		}
	}
	return out
}

func encode(t *testing.T, recs []map[string]any) string {
	t.Helper()
	data, err := json.Marshal(recs)
	require.NoError(t, err)
	return string(data)
}

func TestLoad_Valid(t *testing.T) {
	st, err := story.Load(strings.NewReader(encode(t, records(5))), story.FormatJSON, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, st.Len())
	step, err := st.Get(0)
	require.NoError(t, err)
	assert.Equal(t, domain.Step{ID: 1, Text: "step 1", OptionA: "a1", OptionB: "b1"}, step)

	last, err := st.Get(4)
	require.NoError(t, err)
	assert.Equal(t, 5, last.ID)
}

func TestLoadFile_Formats(t *testing.T) {
	for _, name := range []string{"three.json", "three.yaml"} {
		t.Run(name, func(t *testing.T) {
			st, err := story.LoadFile(filepath.Join("testdata", name), 3)
			require.NoError(t, err)
			assert.Equal(t, 3, st.Len())

			step, err := st.Get(2)
			require.NoError(t, err)
			assert.Equal(t, "The sea appears on the horizon.", step.Text)
			assert.Equal(t, "Take a photo", step.OptionB)
			assert.Equal(t, filepath.Join("testdata", name), st.Source())
		})
	}
}

func TestLoadFile_NotFound(t *testing.T) {
	_, err := story.LoadFile(filepath.Join(t.TempDir(), "missing.json"), 3)
	assert.ErrorIs(t, err, domain.ErrStoryNotFound)
	assert.False(t, errors.Is(err, domain.ErrMalformedStory))
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		doc     func() string
		format  story.Format
		total   int
		problem string
	}{
		{
			name:    "count below total",
			doc:     func() string { return encode(t, records(99)) },
			total:   100,
			problem: "expected 100 steps, found 99",
		},
		{
			name:    "count above total",
			doc:     func() string { return encode(t, records(4)) },
			total:   3,
			problem: "expected 3 steps, found 4",
		},
		{
			name: "missing field",
			doc: func() string {
				recs := records(3)
				delete(recs[1], "b")
				return encode(t, recs)
			},
			total:   3,
			problem: "record 2: missing b",
		},
		{
			name: "empty option",
			doc: func() string {
				recs := records(3)
				recs[2]["a"] = "  "
				return encode(t, recs)
			},
			total:   3,
			problem: "record 3: empty option a",
		},
		{
			name: "duplicate id",
			doc: func() string {
				recs := records(3)
				recs[2]["id"] = 2
				return encode(t, recs)
			},
			total:   3,
			problem: "duplicate id 2",
		},
		{
			name: "non contiguous ids",
			doc: func() string {
				recs := records(3)
				recs[2]["id"] = 7
				return encode(t, recs)
			},
			total:   3,
			problem: "id 7 breaks the contiguous sequence",
		},
		{
			name: "fractional id",
			doc: func() string {
				return `[{"id": 1.5, "text": "t", "a": "x", "b": "y"}]`
			},
			total:   1,
			problem: "record 1:",
		},
		{
			name:    "fractional yaml id",
			doc:     func() string { return "- {id: 1.5, text: t, a: x, b: y}\n" },
			format:  story.FormatYAML,
			total:   1,
			problem: "non-integer value 1.5",
		},
		{
			name:    "trailing json after list",
			doc:     func() string { return encode(t, records(1)) + ` {"junk":` },
			total:   1,
			problem: "trailing data",
		},
		{
			name:    "concatenated json lists",
			doc:     func() string { return encode(t, records(1)) + encode(t, records(1)) },
			total:   1,
			problem: "trailing data",
		},
		{
			name:    "not a list",
			doc:     func() string { return `{"id": 1}` },
			total:   1,
			problem: "invalid json",
		},
		{
			name:    "null document",
			doc:     func() string { return `null` },
			total:   1,
			problem: "not a list of steps",
		},
		{
			name:    "non positive total",
			doc:     func() string { return `[]` },
			total:   0,
			problem: "configured total must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format := tt.format
			if format == "" {
				format = story.FormatJSON
			}
			_, err := story.Load(strings.NewReader(tt.doc()), format, tt.total)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMalformedStory)

			var malformed *domain.MalformedStoryError
			require.True(t, errors.As(err, &malformed))
			assert.Contains(t, strings.Join(malformed.Problems, "\n"), tt.problem)
		})
	}
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	recs := records(3)
	delete(recs[0], "text")
	recs[1]["b"] = ""
	recs[2]["id"] = 9

	_, err := story.Load(strings.NewReader(encode(t, recs)), story.FormatJSON, 3)

	var malformed *domain.MalformedStoryError
	require.True(t, errors.As(err, &malformed))
	assert.Len(t, malformed.Problems, 3)
}

func TestLoad_YAMLIntegralFloatID(t *testing.T) {
	doc := "- {id: 1.0, text: t, a: x, b: y}\n"
	st, err := story.Load(strings.NewReader(doc), story.FormatYAML, 1)
	require.NoError(t, err)

	step, err := st.Get(0)
	require.NoError(t, err)
	assert.Equal(t, 1, step.ID)
}

func TestLoad_JSONTrailingWhitespace(t *testing.T) {
	_, err := story.Load(strings.NewReader(encode(t, records(2))+"\n\n  "), story.FormatJSON, 2)
	require.NoError(t, err)
}

func TestLoad_YAMLWrongType(t *testing.T) {
	doc := "- id: one\n  text: t\n  a: x\n  b: y\n"
	_, err := story.Load(strings.NewReader(doc), story.FormatYAML, 1)
	assert.ErrorIs(t, err, domain.ErrMalformedStory)
}

func TestStore_GetOutOfRange(t *testing.T) {
	st, err := story.LoadFile(filepath.Join("testdata", "three.json"), 3)
	require.NoError(t, err)

	for _, idx := range []int{-1, 3, 100} {
		_, err := st.Get(idx)
		assert.ErrorIs(t, err, domain.ErrIndexOutOfRange, "index %d", idx)
	}
}

func TestStore_StepsIsACopy(t *testing.T) {
	st, err := story.LoadFile(filepath.Join("testdata", "three.json"), 3)
	require.NoError(t, err)

	steps := st.Steps()
	steps[0].Text = "changed"

	first, err := st.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "The train leaves the station.", first.Text)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, story.FormatYAML, story.FormatFromPath("a/story.YML"))
	assert.Equal(t, story.FormatYAML, story.FormatFromPath("story.yaml"))
	assert.Equal(t, story.FormatJSON, story.FormatFromPath("story.json"))
	assert.Equal(t, story.FormatJSON, story.FormatFromPath("story"))
}

func TestFromSteps(t *testing.T) {
	s, err := story.FromSteps([]domain.Step{
		{ID: 1, Text: "One", OptionA: "x", OptionB: "y"},
		{ID: 2, Text: "Two", OptionA: "x", OptionB: "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "memory", s.Source())

	_, err = story.FromSteps(nil)
	assert.ErrorIs(t, err, domain.ErrMalformedStory)

	_, err = story.FromSteps([]domain.Step{{ID: 2, Text: "Two", OptionA: "x", OptionB: "y"}})
	assert.ErrorIs(t, err, domain.ErrMalformedStory)
}
