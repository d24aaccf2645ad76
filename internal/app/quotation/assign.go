package quotation

import "sort"

// LeastLoadedSalesperson picks the team member with the fewest active
// opportunities. Only opportunities in the configured active stages
// count toward load; ties break toward the lowest user id. Returns 0
// when the teams have no members.
func LeastLoadedSalesperson(crm CRM, cfg SalesConfig) (int64, error) {
	teams, err := crm.SearchRead("crm.team",
		filter(cond("id", "in", cfg.TeamIDs)),
		[]string{"member_ids"}, 0)
	if err != nil {
		return 0, err
	}

	memberSet := make(map[int64]bool)
	for _, team := range teams {
		for _, id := range team.IDs("member_ids") {
			memberSet[id] = true
		}
	}
	if len(memberSet) == 0 {
		return 0, nil
	}

	members := make([]int64, 0, len(memberSet))
	for id := range memberSet {
		members = append(members, id)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

	// Every member starts at zero so idle salespeople are eligible.
	counts := make(map[int64]int, len(members))
	for _, id := range members {
		counts[id] = 0
	}

	leads, err := crm.SearchRead("crm.lead",
		filter(
			cond("stage_id", "in", cfg.ActiveStageIDs),
			cond("active", "=", true),
			cond("type", "=", "opportunity"),
		),
		[]string{"user_id"}, 0)
	if err != nil {
		return 0, err
	}

	for _, lead := range leads {
		userID, ok := lead.Ref("user_id")
		if !ok {
			continue
		}
		if _, member := counts[userID]; member {
			counts[userID]++
		}
	}

	best := members[0]
	for _, id := range members[1:] {
		if counts[id] < counts[best] {
			best = id
		}
	}
	return best, nil
}
