package core

import (
	"sort"
	"strings"

	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/lambentLogic/spectrum/schema"
)

// WeightType derives the structural type of a tensor from its dotted name:
// everything strictly after the first pure-integer path segment. Names with
// no integer segment are their own type. This is the only rule that collapses
// per-layer duplication, e.g. model.layers.0.self_attn.q_proj.weight and
// model.layers.31.self_attn.q_proj.weight share self_attn.q_proj.weight.
func WeightType(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		if isDigits(part) {
			return strings.Join(parts[i+1:], ".")
		}
	}
	return name
}

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RoleOf resolves a tensor's parameter role from its final name segment
// against the fixed set of recognized roles.
func RoleOf(name string) (schema.TensorRole, bool) {
	idx := strings.LastIndex(name, ".")
	last := name
	if idx >= 0 {
		last = name[idx+1:]
	}
	switch schema.TensorRole(last) {
	case schema.WeightRole:
		return schema.WeightRole, true
	case schema.BiasRole:
		return schema.BiasRole, true
	case schema.InvFreqRole:
		return schema.InvFreqRole, true
	}
	return "", false
}

// ListWeightTypes returns the unique structural types of all weight-bearing
// tensors in the catalog, in first-seen order.
func ListWeightTypes(catalog contract.TensorCatalog) []string {
	seen := make(map[string]bool)
	var types []string
	for _, name := range catalog.Names() {
		if _, ok := RoleOf(name); !ok {
			continue
		}
		t := WeightType(name)
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	return types
}

// SortWeightTypes orders types by their leading category, then alphabetically
// within each category, for readable listings.
func SortWeightTypes(types []string) []string {
	categories := make(map[string][]string)
	var catOrder []string
	for _, t := range types {
		cat := strings.SplitN(t, ".", 2)[0]
		if _, ok := categories[cat]; !ok {
			catOrder = append(catOrder, cat)
		}
		categories[cat] = append(categories[cat], t)
	}
	sort.Strings(catOrder)

	sorted := make([]string, 0, len(types))
	for _, cat := range catOrder {
		group := categories[cat]
		sort.Strings(group)
		sorted = append(sorted, group...)
	}
	return sorted
}

// MatrixNamesOfType returns the catalog's weight tensor names whose derived
// structural type matches, preserving catalog order. Only weight-role tensors
// qualify; biases and frequency tables carry no spectrum worth decomposing.
func MatrixNamesOfType(catalog contract.TensorCatalog, weightType string) []string {
	var names []string
	for _, name := range catalog.Names() {
		role, ok := RoleOf(name)
		if !ok || role != schema.WeightRole {
			continue
		}
		if WeightType(name) == weightType {
			names = append(names, name)
		}
	}
	return names
}
