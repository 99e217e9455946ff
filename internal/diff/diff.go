// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package diff computes path-level differences between two JSON-shaped values.
//
// Arrays are compared index by index like objects keyed "0", "1", ...; moving
// an element reports every shifted index as modified rather than a move.
package diff

import (
	"encoding/json"
	"reflect"
	"sort"
	"strconv"

	"github.com/concretesite/designstore/internal/model"
)

// Compare returns the differences that turn a into b.
// Operands are normalized through encoding/json first, so structs, maps and
// json.RawMessage compare by their JSON shape. Neither operand is modified.
// The result is ordered deterministically: keys are visited in sorted order,
// array indices in numeric order.
func Compare(a, b any) []model.Difference {
	var out []model.Difference
	walk("", normalize(a), normalize(b), &out)
	return out
}

// Summary counts differences by type.
type Summary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
}

// Total returns the number of differences.
func (s Summary) Total() int {
	return s.Added + s.Removed + s.Modified
}

// Summarize counts diffs by type.
func Summarize(diffs []model.Difference) Summary {
	var s Summary
	for _, d := range diffs {
		switch d.Type {
		case model.DiffAdded:
			s.Added++
		case model.DiffRemoved:
			s.Removed++
		case model.DiffModified:
			s.Modified++
		}
	}
	return s
}

func normalize(v any) any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func walk(path string, a, b any, out *[]model.Difference) {
	aObj, aIsObj := asObject(a)
	bObj, bIsObj := asObject(b)

	if !aIsObj || !bIsObj {
		if !equal(a, b) {
			*out = append(*out, model.Difference{
				Path:     path,
				Type:     model.DiffModified,
				OldValue: a,
				NewValue: b,
			})
		}
		return
	}

	for _, key := range unionKeys(aObj, bObj) {
		child := join(path, key)
		av, inA := aObj[key]
		bv, inB := bObj[key]

		switch {
		case inA && !inB:
			*out = append(*out, model.Difference{Path: child, Type: model.DiffRemoved, OldValue: av})
		case !inA && inB:
			*out = append(*out, model.Difference{Path: child, Type: model.DiffAdded, NewValue: bv})
		default:
			walk(child, av, bv, out)
		}
	}
}

// asObject views maps and arrays as string-keyed objects.
func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []any:
		m := make(map[string]any, len(t))
		for i, e := range t {
			m[strconv.Itoa(i)] = e
		}
		return m, true
	default:
		return nil, false
	}
}

// equal is strict equality for scalars. Mixed object/scalar pairs are never equal.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if !reflect.TypeOf(a).Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

func unionKeys(a, b map[string]any) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	// Index keys first in numeric order, then the rest lexically.
	sort.Slice(keys, func(i, j int) bool {
		ni, errI := strconv.Atoi(keys[i])
		nj, errJ := strconv.Atoi(keys[j])
		switch {
		case errI == nil && errJ == nil:
			return ni < nj
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
