package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeAgo(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"just now", 10 * time.Second, "now"},
		{"future clamps to now", -time.Hour, "now"},
		{"minutes", 5*time.Minute + 30*time.Second, "5m"},
		{"hours", 3*time.Hour + 59*time.Minute, "3h"},
		{"days", 49 * time.Hour, "2d"},
		{"weeks", 15 * 24 * time.Hour, "2w"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TimeAgo(now.Add(-tt.ago), now))
		})
	}
}

func TestDomain(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "example.com", Domain("https://www.example.com/a?b=c"))
	assert.Equal(t, "blog.example.com", Domain("http://blog.example.com:8080/"))
	assert.Equal(t, "", Domain("not a url"))
	assert.Equal(t, "", Domain(""))
}
