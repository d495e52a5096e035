package dominoes

func pipCounts(s *State) map[string]int {
	out := make(map[string]int, len(s.PlayOrder))
	for _, uid := range s.PlayOrder {
		sum := 0
		for _, t := range s.Hands[uid] {
			sum += t.Pips()
		}
		out[uid] = sum
	}
	return out
}

// finishRoundGoOut awards winnerID the sum of all opponents' pip counts
// (spec.md §4.8).
func finishRoundGoOut(s *State, winnerID string) {
	counts := pipCounts(s)
	total := 0
	for uid, c := range counts {
		if uid != winnerID {
			total += c
		}
	}
	s.RoundPipCounts = counts
	s.RoundWinner = &winnerID
	s.IsRoundTie = false
	s.PlayerScores[winnerID] += total
	decideGameEnd(s)
}

// finishRoundBlocked finds the single lowest pip count and awards them the
// difference against every opponent; a tie for lowest scores nobody
// (spec.md §4.8, §8 "blocked dominoes tie").
func finishRoundBlocked(s *State) {
	counts := pipCounts(s)
	lowestUID := ""
	lowest := -1
	tie := false
	for _, uid := range s.PlayOrder {
		c := counts[uid]
		if lowest == -1 || c < lowest {
			lowest = c
			lowestUID = uid
			tie = false
		} else if c == lowest {
			tie = true
		}
	}

	s.RoundPipCounts = counts
	if tie {
		s.RoundWinner = nil
		s.IsRoundTie = true
	} else {
		total := 0
		for uid, c := range counts {
			if uid != lowestUID {
				total += c - lowest
			}
		}
		s.RoundWinner = &lowestUID
		s.IsRoundTie = false
		s.PlayerScores[lowestUID] += total
	}
	decideGameEnd(s)
}

func decideGameEnd(s *State) {
	target := int(s.Settings.WinTarget)
	for _, uid := range s.PlayOrder {
		if s.PlayerScores[uid] >= target {
			winner := uid
			s.GameWinner = &winner
			s.Phase = PhaseFinished
			return
		}
	}
	s.Phase = PhaseRoundSummary
}
