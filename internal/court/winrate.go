package court

import (
	"context"
	"fmt"
	"math"

	"github.com/JustJay7/gosomi-court/internal/database"
)

// neutralWinRate is reported for users without completed cases.
const neutralWinRate = 50.0

// WinRate is the share of userID's completed cases in which the opponent
// carried strictly more fault, in percent rounded to two decimals.
func WinRate(userID uint, cases []*database.Case) float64 {
	total, wins := 0, 0
	for _, c := range cases {
		if c.Status != database.StatusCompleted {
			continue
		}
		role, ok := c.RoleOf(userID)
		if !ok {
			continue
		}
		total++
		if c.FaultRatio == nil {
			continue
		}
		own, other := c.FaultRatio.Plaintiff, c.FaultRatio.Defendant
		if role == database.RoleDefendant {
			own, other = other, own
		}
		if other > own {
			wins++
		}
	}

	if total == 0 {
		return neutralWinRate
	}
	return math.Round(float64(wins)/float64(total)*100*100) / 100
}

// RefreshWinRate recomputes and stores a user's win rate.
func (s *Service) RefreshWinRate(ctx context.Context, userID uint) error {
	cases, err := s.repos.Cases.ListCompletedByParty(ctx, nil, userID)
	if err != nil {
		return fmt.Errorf("failed to list completed cases: %w", err)
	}
	rate := WinRate(userID, cases)
	if err := s.repos.Users.UpdateWinRate(ctx, nil, userID, rate); err != nil {
		return fmt.Errorf("failed to store win rate: %w", err)
	}
	return nil
}
