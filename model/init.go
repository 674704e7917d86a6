package model

import (
	"fmt"
	"sort"
	"strings"
)

// Init renumbers all derived indices after a structural edit. It is
// idempotent and must run before assembly:
//
//   - every Variable gets its repeat index/count within its name group;
//   - binary-element mode: element indices, per-element and per-interaction
//     (from,to) pair sets, and the binary state-name labels;
//   - states-only mode: declaration-order state indices, transition
//     endpoint resolution, and state-name labels;
//   - every active StateGroup's index list is expanded, sorted and
//     deduplicated.
//
// Returns the state-name labels. Fails with ErrGroupSpec on an invalid
// group spec. Complexity: O(V + k·4^k + T + G·N) for k elements.
func (m *Model) Init() ([]string, error) {
	// Stage 1: variable repeat indices
	occurrences := make(map[string]int)
	for _, v := range m.Variables {
		v.repeatIndex = occurrences[v.Name]
		occurrences[v.Name] = v.repeatIndex + 1
	}
	for _, v := range m.Variables {
		v.repeatCount = occurrences[v.Name]
	}

	// Stage 2: state space and pair sets
	numElements := len(m.Elements)
	if numElements > 0 {
		numStates := 1 << numElements
		for i, e := range m.Elements {
			e.index = i
			e.pairs01, e.pairs10 = elementStatePairs(i, numStates)
		}
		for _, in := range m.Interactions {
			a := m.FindElement(in.AName)
			b := m.FindElement(in.BName)
			if a == nil || b == nil {
				in.a, in.b = -1, -1

				continue
			}
			in.a, in.b = a.index, b.index
			in.pairs1101, in.pairs1110, in.pairs0111, in.pairs1011 =
				interactionStatePairs(a.index, b.index, numStates)
		}
		m.stateNames = binaryStateNames(numElements)
	} else {
		m.stateNames = make([]string, 0, len(m.States))
		for i, s := range m.States {
			s.index = i
			m.stateNames = append(m.stateNames, s.Name)
		}
		for _, t := range m.Transitions {
			t.from, t.to = -1, -1
			if s := m.FindState(t.FromName); s != nil {
				t.from = s.index
			}
			if s := m.FindState(t.ToName); s != nil {
				t.to = s.index
			}
		}
	}

	// Stage 3: state group expansion
	for _, g := range m.Groups {
		if !g.Active {
			continue
		}
		var (
			idx []int
			err error
		)
		if numElements > 0 {
			idx, err = configGroupIndexes(g.States, numElements)
		} else {
			idx, err = nameGroupIndexes(g.States, m.stateNames)
		}
		if err != nil {
			return nil, fmt.Errorf("Init: group %q: %w", g.Name, err)
		}
		g.indexes = idx
	}

	return m.stateNames, nil
}

// elementStatePairs enumerates the ordered state pairs in which element
// elementIndex flips: pairs01 where bit elementIndex of to is set, pairs10
// symmetrically. Each set has exactly 2^(k-1) pairs.
func elementStatePairs(elementIndex, numStates int) (pairs01, pairs10 []IndexPair) {
	mask := 1 << elementIndex
	for from := 0; from < numStates; from++ {
		for to := 0; to < numStates; to++ {
			if from^to == mask {
				if to&mask != 0 {
					pairs01 = append(pairs01, IndexPair{From: from, To: to})
				} else {
					pairs10 = append(pairs10, IndexPair{From: from, To: to})
				}
			}
		}
	}

	return pairs01, pairs10
}

// interactionStatePairs enumerates, for the element pair (a, b), the four
// transition sets whose rates an interaction modifies. The suffix reads as
// from→to over the (a,b) configuration: 11→01, 11→10, 01→11, 10→11.
func interactionStatePairs(a, b, numStates int) (pairs1101, pairs1110, pairs0111, pairs1011 []IndexPair) {
	maskA := 1 << a
	maskB := 1 << b
	for from := 0; from < numStates; from++ {
		configA := (from >> a) & 1
		configB := (from >> b) & 1
		switch {
		case configA == 1 && configB == 1:
			for to := 0; to < numStates; to++ {
				if from^to == maskA {
					pairs1101 = append(pairs1101, IndexPair{From: from, To: to})
				} else if from^to == maskB {
					pairs1110 = append(pairs1110, IndexPair{From: from, To: to})
				}
			}
		case configA == 1:
			for to := 0; to < numStates; to++ {
				if from^to == maskB {
					pairs1011 = append(pairs1011, IndexPair{From: from, To: to})
				}
			}
		case configB == 1:
			for to := 0; to < numStates; to++ {
				if from^to == maskA {
					pairs0111 = append(pairs0111, IndexPair{From: from, To: to})
				}
			}
		}
	}

	return pairs1101, pairs1110, pairs0111, pairs1011
}

// binaryStateNames labels every product state with its configuration
// string: character j of state s is bit j of s as '0'/'1'.
func binaryStateNames(numElements int) []string {
	numStates := 1 << numElements
	names := make([]string, numStates)
	buf := make([]byte, numElements)
	for s := 0; s < numStates; s++ {
		for j := 0; j < numElements; j++ {
			if s&(1<<j) != 0 {
				buf[j] = '1'
			} else {
				buf[j] = '0'
			}
		}
		names[s] = string(buf)
	}

	return names
}

// configStateIndexes expands one configuration string over {0,1,*} into
// the matching state indices; '*' doubles the set. Character j maps to
// element bit j.
func configStateIndexes(config string) ([]int, error) {
	indexes := []int{0}
	for i := 0; i < len(config); i++ {
		switch config[i] {
		case '1':
			for j := range indexes {
				indexes[j] ^= 1 << i
			}
		case '*':
			n := len(indexes)
			for j := 0; j < n; j++ {
				indexes = append(indexes, indexes[j]^(1<<i))
			}
		case '0':
			// bit stays clear
		default:
			return nil, fmt.Errorf("invalid configuration %q: %w", config, ErrGroupSpec)
		}
	}

	return indexes, nil
}

// configGroupIndexes expands a comma-separated list of configuration
// strings, enforcing the element count, and returns sorted unique indices.
func configGroupIndexes(spec string, numElements int) ([]int, error) {
	var out []int
	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if len(field) != numElements {
			return nil, fmt.Errorf("configuration %q needs %d elements: %w", field, numElements, ErrGroupSpec)
		}
		idx, err := configStateIndexes(field)
		if err != nil {
			return nil, err
		}
		out = append(out, idx...)
	}

	return sortedUnique(out), nil
}

// nameGroupIndexes resolves a comma-separated list of state names and
// returns sorted unique indices.
func nameGroupIndexes(spec string, stateNames []string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		found := -1
		for i, name := range stateNames {
			if name == field {
				found = i

				break
			}
		}
		if found == -1 {
			return nil, fmt.Errorf("invalid state name %q: %w", field, ErrGroupSpec)
		}
		out = append(out, found)
	}

	return sortedUnique(out), nil
}

func sortedUnique(in []int) []int {
	if len(in) == 0 {
		return in
	}
	sort.Ints(in)
	out := in[:1]
	for _, v := range in[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}

	return out
}
