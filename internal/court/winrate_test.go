package court

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JustJay7/gosomi-court/internal/database"
)

func completed(plaintiff, defendant uint, ratio *database.FaultRatio) *database.Case {
	return &database.Case{
		PlaintiffID: plaintiff,
		DefendantID: defendant,
		Status:      database.StatusCompleted,
		FaultRatio:  ratio,
	}
}

func ratio(p, d int) *database.FaultRatio {
	return &database.FaultRatio{Plaintiff: p, Defendant: d}
}

func TestWinRate(t *testing.T) {
	tests := []struct {
		name  string
		cases []*database.Case
		want  float64
	}{
		{"no cases", nil, 50},
		{"single win as plaintiff", []*database.Case{completed(1, 2, ratio(30, 70))}, 100},
		{"single win as defendant", []*database.Case{completed(2, 1, ratio(70, 30))}, 100},
		{"tie is not a win", []*database.Case{completed(1, 2, ratio(50, 50))}, 0},
		{"one of three", []*database.Case{
			completed(1, 2, ratio(10, 90)),
			completed(1, 3, ratio(90, 10)),
			completed(4, 1, ratio(20, 80)),
		}, 33.33},
		{"two of three", []*database.Case{
			completed(1, 2, ratio(10, 90)),
			completed(3, 1, ratio(90, 10)),
			completed(4, 1, ratio(20, 80)),
		}, 66.67},
		{"missing ratio counts as played", []*database.Case{
			completed(1, 2, ratio(10, 90)),
			completed(1, 2, nil),
		}, 50},
		{"ignores unfinished and foreign cases", []*database.Case{
			completed(1, 2, ratio(10, 90)),
			{PlaintiffID: 1, DefendantID: 2, Status: database.StatusVerdictReady, FaultRatio: ratio(90, 10)},
			completed(3, 4, ratio(90, 10)),
		}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WinRate(1, tt.cases))
		})
	}
}
