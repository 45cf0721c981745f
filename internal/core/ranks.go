package core

// Ranks lists the pass tiers in ascending order of minimum points
var Ranks = []Rank{
	{Name: "Starving Artist", MinPoints: 0, Color: "#94a3b8"},
	{Name: "Opening Act", MinPoints: 50, Color: "#22d3ee"},
	{Name: "Headliner", MinPoints: 150, Color: "#a855f7"},
	{Name: "Living Legend", MinPoints: 300, Color: "#f59e0b"},
}

// RankStatus describes where a point total sits on the rank ladder
type RankStatus struct {
	Current  Rank  `json:"current"`
	Next     *Rank `json:"next,omitempty"`
	Progress int   `json:"progress"`
}

// RankFor returns the highest rank whose minimum is at or below points,
// the next rank if any, and the percentage progress toward it.
func RankFor(points int) RankStatus {
	idx := 0
	for i, r := range Ranks {
		if points >= r.MinPoints {
			idx = i
		}
	}

	status := RankStatus{Current: Ranks[idx], Progress: 100}
	if idx+1 >= len(Ranks) {
		return status
	}

	next := Ranks[idx+1]
	status.Next = &next
	span := next.MinPoints - status.Current.MinPoints
	progress := (points - status.Current.MinPoints) * 100 / span
	if progress > 100 {
		progress = 100
	}
	if progress < 0 {
		progress = 0
	}
	status.Progress = progress
	return status
}

// RankProgress is the percentage toward the next rank, 100 at the top
func RankProgress(points int) int {
	return RankFor(points).Progress
}
