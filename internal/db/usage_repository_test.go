package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"qanta-backend-go/internal/models"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want int
		ok   bool
	}{
		{"int64", int64(7), 7, true},
		{"int", 3, 3, true},
		{"float64", float64(12), 12, true},
		{"float64 truncated", 4.9, 4, true},
		{"string", "5", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := number(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeBucket(t *testing.T) {
	used := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	bonus := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		data map[string]interface{}
		want *models.UsageBucket
	}{
		{
			name: "empty document",
			data: map[string]interface{}{},
			want: &models.UsageBucket{Key: "2026-03-15", Counts: map[string]int{}},
		},
		{
			name: "firestore integers",
			data: map[string]interface{}{
				"chat":            int64(4),
				"chat_with_image": int64(1),
				"bonusCount":      int64(2),
				"date":            "2026-03-15",
				"lastUsed":        used,
				"lastBonusAdded":  bonus,
			},
			want: &models.UsageBucket{
				Key:            "2026-03-15",
				Counts:         map[string]int{"chat": 4, "chat_with_image": 1},
				BonusCount:     2,
				LastUsed:       used,
				LastBonusAdded: bonus,
			},
		},
		{
			name: "doubles written by other clients",
			data: map[string]interface{}{"chat": float64(6), "bonusCount": float64(1)},
			want: &models.UsageBucket{Key: "2026-03-15", Counts: map[string]int{"chat": 6}, BonusCount: 1},
		},
		{
			name: "non numeric fields are ignored",
			data: map[string]interface{}{"chat": int64(1), "note": "x", "lastUsed": "yesterday"},
			want: &models.UsageBucket{Key: "2026-03-15", Counts: map[string]int{"chat": 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeBucket("2026-03-15", tt.data))
		})
	}
}

func TestEncodeBucket(t *testing.T) {
	used := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

	out := encodeBucket(&models.UsageBucket{
		Key:        "2026-03",
		Counts:     map[string]int{"chat": 3},
		BonusCount: 0,
		LastUsed:   used,
	})
	assert.Equal(t, map[string]interface{}{
		"chat":       3,
		"bonusCount": 0,
		"date":       "2026-03",
		"lastUsed":   used,
	}, out)

	back := decodeBucket("2026-03", out)
	assert.Equal(t, 3, back.Count("chat"))
	assert.Equal(t, used, back.LastUsed)
	assert.True(t, back.LastBonusAdded.IsZero())
}
