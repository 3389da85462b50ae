package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeSlot_Overlaps(t *testing.T) {
	base := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	slot := &TimeSlot{
		StartTime: base,
		EndTime:   base.Add(30 * time.Minute),
	}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"identical interval", base, base.Add(30 * time.Minute), true},
		{"contained interval", base.Add(10 * time.Minute), base.Add(20 * time.Minute), true},
		{"overlaps start", base.Add(-10 * time.Minute), base.Add(10 * time.Minute), true},
		{"overlaps end", base.Add(20 * time.Minute), base.Add(40 * time.Minute), true},
		{"adjacent before", base.Add(-30 * time.Minute), base, false},
		{"adjacent after", base.Add(30 * time.Minute), base.Add(60 * time.Minute), false},
		{"disjoint before", base.Add(-2 * time.Hour), base.Add(-time.Hour), false},
		{"disjoint after", base.Add(time.Hour), base.Add(2 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slot.Overlaps(tt.start, tt.end))
		})
	}
}
