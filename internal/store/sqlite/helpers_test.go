package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01 09:15:00", time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)},
		{"2024-03-01 09:15:00.250", time.Date(2024, 3, 1, 9, 15, 0, 250_000_000, time.UTC)},
		{"2024-03-01T09:15:00Z", time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)},
		{"", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTime(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	_, err := parseTime("yesterday")
	assert.Error(t, err)
}

func TestFormatTime_SortsAfterLegacyTimestamp(t *testing.T) {
	legacy := "2024-03-01 09:15:00"
	ours := formatTime(time.Date(2024, 3, 1, 9, 15, 0, 1_000_000, time.UTC))

	assert.Equal(t, "2024-03-01 09:15:00.001", ours)
	assert.Less(t, legacy, ours)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% \_done\\`, escapeLike(`100% _done\`))
	assert.Equal(t, "flask", escapeLike("flask"))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}

func TestDSN(t *testing.T) {
	got := dsn("/data/library.db")
	assert.Contains(t, got, "/data/library.db?")
	assert.Contains(t, got, "_txlock=immediate")
	assert.Contains(t, got, "_pragma=foreign_keys%281%29")
}
