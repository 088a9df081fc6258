package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRepositoryIDs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: " , ,", want: nil},
		{in: "123, ,456", want: []string{"123", "456"}},
		{in: " group/app ,42", want: []string{"group/app", "42"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseRepositoryIDs(tt.in)
			assert.Equal(t, tt.want, got)
			// idempotent
			assert.Equal(t, got, ParseRepositoryIDs(JoinRepositoryIDs(got)))
		})
	}
}

func TestNotifyOn_Enabled(t *testing.T) {
	on := NotifyOn{Failed: true, Pending: true}

	assert.True(t, on.Enabled(StatusFailed))
	assert.True(t, on.Enabled(StatusPending))
	assert.False(t, on.Enabled(StatusSuccess))
	assert.False(t, on.Enabled(StatusRunning))
	assert.False(t, on.Enabled(StatusOther))
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusSuccess, ParseStatus("success"))
	assert.Equal(t, StatusFailed, ParseStatus("FAILED"))
	assert.Equal(t, StatusRunning, ParseStatus("running"))
	assert.Equal(t, StatusPending, ParseStatus("pending"))
	assert.Equal(t, StatusOther, ParseStatus("canceled"))
	assert.Equal(t, StatusOther, ParseStatus(""))
}

func TestGlyphsAreDistinct(t *testing.T) {
	seen := map[string]PipelineStatus{}
	for _, s := range []PipelineStatus{StatusSuccess, StatusFailed, StatusRunning, StatusPending, StatusOther} {
		g := s.Glyph()
		if prev, ok := seen[g]; ok {
			t.Fatalf("%s and %s share glyph %q", prev, s, g)
		}
		seen[g] = s
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, "https://gitlab.com", s.GitLab.URL)
	assert.Empty(t, s.GitLab.Token)
	assert.Empty(t, s.GitLab.Repositories)
	assert.False(t, s.Notifications.Zulip.Enabled)
	assert.False(t, s.Notifications.Telegram.Enabled)
	assert.Equal(t, NotifyOn{Failed: true}, s.Notifications.NotifyOn)
	assert.False(t, s.GitLab.Configured())
}
