package spades

// finishRound computes round scores per spec.md §4.7 and decides whether
// the game is finished, tied, or moves to round-summary. Mutates s in
// place; callers pass an already-cloned state.
func finishRound(s *State) {
	trickCounts := map[string]int{"team1": 0, "team2": 0}
	for _, t := range s.CompletedTricks {
		team := teamOfPlayer(s, t.WinnerID)
		trickCounts[team]++
	}

	breakdown := map[string]ScoreBreakdown{}
	for teamID, team := range s.Teams {
		b := ScoreBreakdown{TricksWon: trickCounts[teamID]}
		hasBlind := false

		for _, playerID := range team.Players {
			bid, ok := s.Bids[playerID]
			if !ok {
				continue
			}
			switch bid.Type {
			case BidNil:
				if playerTricks(s, playerID) == 0 {
					b.NilBonus += 100
				} else {
					b.NilPenalty += 100
				}
			case BidBlindNil:
				hasBlind = true
				if playerTricks(s, playerID) == 0 {
					b.BlindNilBonus += 200
				} else {
					b.BlindNilPenalty += 200
				}
			case BidBlind:
				hasBlind = true
				b.TeamBid += bid.Amount
			case BidNormal:
				b.TeamBid += bid.Amount
			}
		}

		if b.TeamBid > 0 {
			if b.TricksWon >= b.TeamBid {
				b.BasePoints = b.TeamBid * 10
				if hasBlind {
					b.BlindBonus += b.TeamBid * 10
				}
				b.BagsThisRound = b.TricksWon - b.TeamBid
				b.BagPoints = b.BagsThisRound
			} else {
				b.BasePoints = -b.TeamBid * 10
				if hasBlind {
					b.BlindPenalty += b.TeamBid * 10
				}
			}
		}

		cumulativeBags := team.AccumulatedBags + b.BagsThisRound
		if cumulativeBags >= 10 {
			b.BagPenalty = int(penaltyMagnitude(s.Settings.BagsPenalty))
			team.AccumulatedBags = cumulativeBags % 10
		} else {
			team.AccumulatedBags = cumulativeBags
		}

		b.RoundScore = b.BasePoints + b.BagPoints + b.NilBonus - b.NilPenalty +
			b.BlindBonus - b.BlindPenalty + b.BlindNilBonus - b.BlindNilPenalty - b.BagPenalty

		team.Score += b.RoundScore
		breakdown[teamID] = b
	}

	s.RoundTrickCounts = trickCounts
	s.RoundTeamScores = map[string]int{}
	for id, b := range breakdown {
		s.RoundTeamScores[id] = b.RoundScore
	}
	s.RoundScoreBreakdown = breakdown

	decideGameEnd(s)
}

func teamOfPlayer(s *State, playerID string) string {
	for id, t := range s.Teams {
		for _, p := range t.Players {
			if p == playerID {
				return id
			}
		}
	}
	return ""
}

func playerTricks(s *State, playerID string) int {
	count := 0
	for _, t := range s.CompletedTricks {
		if t.WinnerID == playerID {
			count++
		}
	}
	return count
}

// penaltyMagnitude accepts the configured (typically negative) bagsPenalty
// and returns its magnitude as applied deduction, per spec.md §9's bag
// penalty sign ambiguity note.
func penaltyMagnitude(configured float64) float64 {
	if configured < 0 {
		return -configured
	}
	return configured
}

// decideGameEnd checks win-target crossing and sets phase/winner/tie.
func decideGameEnd(s *State) {
	winTarget := int(s.Settings.WinTarget)
	var crossed []string
	for id, t := range s.Teams {
		if t.Score >= winTarget {
			crossed = append(crossed, id)
		}
	}
	switch len(crossed) {
	case 0:
		s.Phase = PhaseRoundSummary
	case 1:
		s.Phase = PhaseFinished
		winner := crossed[0]
		s.WinnerTeamID = &winner
	default:
		s.Phase = PhaseFinished
		best := crossed[0]
		tie := false
		for _, id := range crossed[1:] {
			if s.Teams[id].Score > s.Teams[best].Score {
				best = id
				tie = false
			} else if s.Teams[id].Score == s.Teams[best].Score {
				tie = true
			}
		}
		if tie {
			s.IsTie = true
		} else {
			s.WinnerTeamID = &best
		}
	}
}
