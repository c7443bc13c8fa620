package model

// AppearanceScores tallies how many times each user id appears in the combined
// reactor multiset. Repetition across content items is the engagement signal,
// so duplicates in ids must be preserved by the caller.
func AppearanceScores(ids []int64) map[int64]int {
	scores := make(map[int64]int, len(ids))
	for _, id := range ids {
		scores[id]++
	}
	return scores
}
