package triage

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// LabelMap is the canonical class-name to model-code mapping shared by
// training and serving.
type LabelMap struct {
	codes map[Class]int
	names map[int]Class
}

// DefaultLabelMap is the mapping the bundled model was fit with.
func DefaultLabelMap() *LabelMap {
	m, _ := NewLabelMap(map[string]int{
		string(ClassNonUrgent): 0,
		string(ClassUrgent):     1,
		string(ClassEmergent):   2,
	})
	return m
}

// NewLabelMap validates raw and builds the inverse. Every name must be a
// defined Class and codes must be a bijection onto 0..len(raw)-1.
func NewLabelMap(raw map[string]int) (*LabelMap, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("label map is empty")
	}

	codes := make(map[Class]int, len(raw))
	for name, code := range raw {
		c := Class(name)
		if !c.Valid() {
			return nil, fmt.Errorf("label map: unknown class %q", name)
		}
		if code < 0 || code >= len(raw) {
			return nil, fmt.Errorf("label map: code %d for %q outside 0..%d", code, name, len(raw)-1)
		}
		codes[c] = code
	}

	names := lo.Invert(codes)
	if len(names) != len(codes) {
		return nil, fmt.Errorf("label map: duplicate codes")
	}

	return &LabelMap{codes: codes, names: names}, nil
}

// Decode maps a model code back to its class.
func (m *LabelMap) Decode(code int) (Class, error) {
	c, ok := m.names[code]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownLabelCode, code)
	}
	return c, nil
}

// Len is the number of classes, i.e. the expected distribution length.
func (m *LabelMap) Len() int { return len(m.codes) }

// Classes returns the mapped classes ordered by code.
func (m *LabelMap) Classes() []Class {
	out := lo.Keys(m.codes)
	sort.Slice(out, func(i, j int) bool { return m.codes[out[i]] < m.codes[out[j]] })
	return out
}
