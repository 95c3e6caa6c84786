package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampUTC(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "explicit UTC offset",
			input: "2024-03-01T10:15:30+00:00",
			want:  time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC),
		},
		{
			name:  "zulu suffix",
			input: "2024-03-01T10:15:30Z",
			want:  time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC),
		},
		{
			name:  "non-UTC offset normalized",
			input: "2024-03-01T12:15:30+02:00",
			want:  time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC),
		},
		{
			name:  "no offset assumes UTC",
			input: "2024-03-01T10:15:30",
			want:  time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC),
		},
		{
			name:  "minute precision",
			input: "2024-03-01T10:15",
			want:  time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC),
		},
		{
			name:  "date only",
			input: "2024-03-01",
			want:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "surrounding whitespace",
			input: "  2024-03-01T10:15:30Z ",
			want:  time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC),
		},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "yesterday", wantErr: true},
		{name: "wrong order", input: "01-03-2024T10:15:30", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TimestampUTC(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %v, want %v", got, tc.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}
