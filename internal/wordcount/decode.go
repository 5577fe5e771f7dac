package wordcount

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecodeResult reads a reducer result. Two shapes are accepted: an object
// mapping word to count, or an array of {"word": ..., "count": ...} records.
// Array elements that are not such records, or whose word is not a string or
// number, are skipped and a later record for the same word replaces an
// earlier one. An object entry with an unusable count is an error only when
// its key could be a word of the text.
func DecodeResult(data []byte) (map[string]int, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("failed to decode result: trailing data after top-level value")
	}

	switch v := doc.(type) {
	case map[string]any:
		out := make(map[string]int, len(v))
		for word, raw := range v {
			n, err := toCount(raw)
			if err != nil {
				if !isToken(word) {
					// Never compared, only counted.
					out[word] = 0
					continue
				}
				return nil, fmt.Errorf("invalid count for %q: %w", word, err)
			}
			out[word] = n
		}
		return out, nil
	case []any:
		out := make(map[string]int, len(v))
		for i, el := range v {
			rec, ok := el.(map[string]any)
			if !ok {
				continue
			}
			rawWord, hasWord := rec["word"]
			rawCount, hasCount := rec["count"]
			if !hasWord || !hasCount {
				continue
			}
			word, ok := toWord(rawWord)
			if !ok {
				continue
			}
			n, err := toCount(rawCount)
			if err != nil {
				return nil, fmt.Errorf("invalid count for %q in record %d: %w", word, i, err)
			}
			out[word] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("result must be a JSON object or array, got %s", kind(doc))
	}
}

// toWord reports false for words that are neither strings nor numbers.
func toWord(v any) (string, bool) {
	switch w := v.(type) {
	case string:
		return w, true
	case json.Number:
		return w.String(), true
	default:
		return "", false
	}
}

// isToken reports whether word could come out of Tokenize at all.
func isToken(word string) bool {
	return tokenPattern.MatchString(word)
}

// toCount truncates fractional numbers toward zero and accepts integer strings.
func toCount(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil || math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("number %s out of range", n)
		}
		return int(math.Trunc(f)), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("string %q is not an integer", n)
		}
		return i, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("expected a number, got %s", kind(v))
	}
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
