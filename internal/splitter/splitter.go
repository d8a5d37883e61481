// Package splitter computes penny-exact splits of receipt items across
// participants. All arithmetic is on integer minor units; for every item the
// computed shares sum to exactly the item price, so no cent is ever lost or
// invented. Compute is pure and safe to call concurrently.
package splitter

import (
	"fmt"
)

// Policy names the rule for distributing the leftover cents when an item's
// price does not divide evenly among its assignees. Exactly one policy
// applies per computation; callers must not vary it per receipt for the same
// dataset.
type Policy string

const (
	// PolicyLowestTotal awards each remainder cent to the assignee with the
	// lowest running total so far (ties broken by the canonical participant
	// order). Extra pennies spread across people instead of always landing
	// on the same ones.
	PolicyLowestTotal Policy = "lowest-total"

	// PolicyStableOrder awards the remainder cents to the first assignees in
	// canonical participant order. Simpler, but systematically overcharges
	// participants listed first.
	PolicyStableOrder Policy = "stable-order"
)

// Item is a priced receipt line as the engine sees it.
type Item struct {
	ID          string
	Description string
	PriceCents  int64
}

// Participant is a person eligible to share items. The order of the
// participants slice passed to Compute is the canonical ordering used for
// deterministic tie-breaks.
type Participant struct {
	ID   string
	Name string
}

// Assignment maps an item ID to the participant IDs sharing that item.
// Duplicate participant IDs within one item collapse to a single occurrence,
// and IDs not present in the participants list are ignored.
type Assignment map[string][]string

// ItemShare is one participant's portion of one item.
type ItemShare struct {
	ItemID      string
	AmountCents int64
}

// Share is the computed total for one participant, with the per-item detail
// for UI drill-down. Detail entries appear in item input order; an item's
// base portion and any remainder cent are merged into a single entry.
type Share struct {
	ParticipantID string
	TotalCents    int64
	Detail        []ItemShare
}

// Result is the full output of a split computation.
type Result struct {
	// PerParticipant is ordered to match the participants input.
	// Participants with no assigned items appear with a zero total.
	PerParticipant []Share

	// ReceiptTotalCents is the sum of all item prices, assigned or not.
	ReceiptTotalCents int64

	// AssignedTotalCents is the sum of prices of items with at least one
	// assignee. Always equal to the sum of all share totals.
	AssignedTotalCents int64

	// UnassignedItemIDs lists items with no (surviving) assignees, in item
	// input order. Not an error: partially assigned receipts are a normal
	// intermediate state.
	UnassignedItemIDs []string
}

// Compute splits items among participants according to assignment.
//
// Per item: base = price/m (floor) goes to every assignee, then the
// remainder (price - base*m) is distributed one cent at a time per the
// policy. The remainder is computed by subtraction rather than mod so the
// derivation is obvious for the non-negative inputs this function accepts.
//
// Compute never fails on "nobody assigned to this item" — those items are
// reported via UnassignedItemIDs. It does reject a negative item price or an
// unknown policy, since those indicate caller bugs rather than a legitimate
// intermediate state.
func Compute(items []Item, participants []Participant, assignment Assignment, policy Policy) (*Result, error) {
	switch policy {
	case PolicyLowestTotal, PolicyStableOrder:
	case "":
		policy = PolicyLowestTotal
	default:
		return nil, fmt.Errorf("unknown remainder policy %q", policy)
	}

	// Canonical ordering: position in the participants input.
	index := make(map[string]int, len(participants))
	for i, p := range participants {
		if _, dup := index[p.ID]; dup {
			return nil, fmt.Errorf("duplicate participant id %q", p.ID)
		}
		index[p.ID] = i
	}

	totals := make([]int64, len(participants))
	details := make([][]ItemShare, len(participants))

	res := &Result{}
	for _, item := range items {
		if item.PriceCents < 0 {
			return nil, fmt.Errorf("item %q has negative price %d", item.ID, item.PriceCents)
		}
		res.ReceiptTotalCents += item.PriceCents

		assignees := assignedIndexes(assignment[item.ID], index)
		if len(assignees) == 0 {
			res.UnassignedItemIDs = append(res.UnassignedItemIDs, item.ID)
			continue
		}
		res.AssignedTotalCents += item.PriceCents

		m := int64(len(assignees))
		base := item.PriceCents / m
		remainder := item.PriceCents - base*m

		amounts := make([]int64, len(assignees))
		for i := range assignees {
			amounts[i] = base
			totals[assignees[i]] += base
		}

		switch policy {
		case PolicyStableOrder:
			for i := int64(0); i < remainder; i++ {
				amounts[i]++
				totals[assignees[i]]++
			}
		case PolicyLowestTotal:
			// One cent at a time: each cent goes to the assignee with the
			// lowest running total, so awarding a cent immediately makes
			// someone else the next candidate when totals were tied.
			for c := int64(0); c < remainder; c++ {
				lowest := 0
				for i := 1; i < len(assignees); i++ {
					if totals[assignees[i]] < totals[assignees[lowest]] {
						lowest = i
					}
				}
				amounts[lowest]++
				totals[assignees[lowest]]++
			}
		}

		for i, amt := range amounts {
			pi := assignees[i]
			details[pi] = append(details[pi], ItemShare{ItemID: item.ID, AmountCents: amt})
		}
	}

	res.PerParticipant = make([]Share, len(participants))
	for i, p := range participants {
		res.PerParticipant[i] = Share{
			ParticipantID: p.ID,
			TotalCents:    totals[i],
			Detail:        details[i],
		}
	}
	return res, nil
}

// assignedIndexes resolves an item's assignee IDs to canonical participant
// indexes, dropping unknown IDs and duplicates, sorted in canonical order.
func assignedIndexes(ids []string, index map[string]int) []int {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(ids))
	var out []int
	for _, id := range ids {
		i, ok := index[id]
		if !ok || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	// Insertion sort keeps canonical order; assignee lists are tiny.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
