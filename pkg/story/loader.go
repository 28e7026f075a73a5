package story

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/aretw0/storyline/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultTotalSteps is the step count of the reference deployment.
const DefaultTotalSteps = 100

// Format is the encoding of a story document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// requiredFields lists the keys every record must carry.
var requiredFields = []string{"id", "text", "a", "b"}

// record mirrors one entry of the story document.
type record struct {
	ID   int    `mapstructure:"id"`
	Text string `mapstructure:"text"`
	A    string `mapstructure:"a"`
	B    string `mapstructure:"b"`
}

// FormatFromPath picks the format from a file extension. Unknown extensions are read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile reads and validates the story at path.
func LoadFile(path string, total int) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrStoryNotFound, path, err)
	}
	return load(data, FormatFromPath(path), total, path)
}

// Load reads and validates a story from r.
func Load(r io.Reader, format Format, total int) (*Store, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil reader", domain.ErrStoryNotFound)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoryNotFound, err)
	}
	return load(data, format, total, "")
}

func load(data []byte, format Format, total int, source string) (*Store, error) {
	raw, err := decode(data, format)
	if err != nil {
		return nil, &domain.MalformedStoryError{Source: source, Problems: []string{err.Error()}}
	}

	steps, problems := validate(raw, total)
	if len(problems) > 0 {
		return nil, &domain.MalformedStoryError{Source: source, Problems: problems}
	}

	return &Store{steps: steps, source: source}, nil
}

// decode parses the document into generic records.
// JSON numbers stay json.Number so that fractional ids are rejected when binding.
func decode(data []byte, format Format) ([]map[string]any, error) {
	var raw []map[string]any

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid yaml: %v", err)
		}
	case FormatJSON, "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid json: %v", err)
		}
		if _, err := dec.Token(); err != io.EOF {
			return nil, fmt.Errorf("invalid json: trailing data after the step list")
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	if raw == nil {
		return nil, fmt.Errorf("document is empty or not a list of steps")
	}
	return raw, nil
}

// bind decodes one record, refusing ids that would lose a fractional part.
func bind(fields map[string]any, rec *record) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: integralFloatHook,
		Result:     rec,
	})
	if err != nil {
		return err
	}
	return dec.Decode(fields)
}

func integralFloatHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	switch v := data.(type) {
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("non-integer value %v", v)
		}
	case float32:
		if float64(v) != math.Trunc(float64(v)) {
			return nil, fmt.Errorf("non-integer value %v", v)
		}
	case json.Number:
		if _, err := v.Int64(); err != nil {
			return nil, fmt.Errorf("non-integer value %s", v)
		}
	}
	return data, nil
}

// validate binds records to steps and collects every structural problem.
func validate(raw []map[string]any, total int) ([]domain.Step, []string) {
	var problems []string

	if total <= 0 {
		problems = append(problems, fmt.Sprintf("configured total must be positive, got %d", total))
	}
	if len(raw) != total {
		problems = append(problems, fmt.Sprintf("expected %d steps, found %d", total, len(raw)))
	}

	steps := make([]domain.Step, 0, len(raw))
	seen := make(map[int]int, len(raw))

	for i, fields := range raw {
		pos := i + 1

		var missing []string
		for _, key := range requiredFields {
			if _, ok := fields[key]; !ok {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("record %d: missing %s", pos, strings.Join(missing, ", ")))
			continue
		}

		var rec record
		if err := bind(fields, &rec); err != nil {
			problems = append(problems, fmt.Sprintf("record %d: %v", pos, err))
			continue
		}

		if strings.TrimSpace(rec.Text) == "" {
			problems = append(problems, fmt.Sprintf("record %d: empty text", pos))
		}
		if strings.TrimSpace(rec.A) == "" {
			problems = append(problems, fmt.Sprintf("record %d: empty option a", pos))
		}
		if strings.TrimSpace(rec.B) == "" {
			problems = append(problems, fmt.Sprintf("record %d: empty option b", pos))
		}

		if first, dup := seen[rec.ID]; dup {
			problems = append(problems, fmt.Sprintf("record %d: duplicate id %d (first at record %d)", pos, rec.ID, first))
		} else {
			seen[rec.ID] = pos
			if rec.ID != pos {
				problems = append(problems, fmt.Sprintf("record %d: id %d breaks the contiguous sequence (want %d)", pos, rec.ID, pos))
			}
		}

		steps = append(steps, domain.Step{
			ID:      rec.ID,
			Text:    rec.Text,
			OptionA: rec.A,
			OptionB: rec.B,
		})
	}

	return steps, problems
}
