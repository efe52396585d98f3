package core

import (
	"sort"

	"github.com/lambentLogic/spectrum/schema"
)

// SelectionPolicy is the internal form of the signed-percent parameter: an
// explicit direction plus a non-negative magnitude. The overloaded signed
// integer exists only at the external boundary.
type SelectionPolicy struct {
	Direction schema.Direction
	Percent   int
}

// PolicyFromSigned maps the boundary convention onto a policy: percent >= 0
// selects the top fraction, negative the bottom fraction.
func PolicyFromSigned(percent int) SelectionPolicy {
	if percent >= 0 {
		return SelectionPolicy{Direction: schema.TopDirection, Percent: percent}
	}
	return SelectionPolicy{Direction: schema.BottomDirection, Percent: -percent}
}

// Select ranks the report's matrices within each structural type and picks
// the policy's fraction of each group.
//
// Sorting is stable, so equal scores keep their report (catalog) insertion
// order; two runs over the same report always produce the same result. The
// per-type count is floor(len * percent / 100), capped at the group size, and
// zero is a valid count. The two fixed entries are always included exactly
// once, independent of scoring.
func Select(report *schema.Report, policy SelectionPolicy) *schema.SelectionResult {
	groups, typeOrder := groupByType(report)

	result := &schema.SelectionResult{
		Direction: policy.Direction,
		Percent:   policy.Percent,
		Fixed:     []string{schema.FixedOutputHead, schema.FixedInputEmbedding},
		TypeOrder: typeOrder,
		ByType:    make(map[string][]string, len(groups)),
	}

	for _, t := range typeOrder {
		group := groups[t]

		sort.SliceStable(group, func(i, j int) bool {
			if policy.Direction == schema.TopDirection {
				return group[i].SNR > group[j].SNR
			}
			return group[i].SNR < group[j].SNR
		})

		count := len(group) * policy.Percent / 100
		if count > len(group) {
			count = len(group)
		}

		names := make([]string, 0, count)
		for _, rec := range group[:count] {
			names = append(names, rec.Name)
		}
		result.ByType[t] = names
	}

	return result
}

// groupByType buckets report records by structural type, preserving both the
// first-seen order of types and the insertion order of records within a type.
func groupByType(report *schema.Report) (map[string][]schema.SNRRecord, []string) {
	groups := make(map[string][]schema.SNRRecord)
	var typeOrder []string
	for _, rec := range report.Records() {
		if _, ok := groups[rec.Type]; !ok {
			typeOrder = append(typeOrder, rec.Type)
		}
		groups[rec.Type] = append(groups[rec.Type], rec)
	}
	return groups, typeOrder
}
