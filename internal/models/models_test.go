package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionCampaign(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{CampaignDraft, CampaignActive, true},
		{CampaignDraft, CampaignPaused, false},
		{CampaignActive, CampaignPaused, true},
		{CampaignActive, CampaignCompleted, true},
		{CampaignPaused, CampaignActive, true},
		{CampaignPaused, CampaignCompleted, false},
		{CampaignCompleted, CampaignActive, false},
		{CampaignCancelled, CampaignDraft, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransitionCampaign(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestCanAdminTransitionCampaign(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{CampaignDraft, CampaignPaused, true},
		{CampaignActive, CampaignPaused, true},
		{CampaignPaused, CampaignPaused, false},
		{CampaignPaused, CampaignCancelled, true},
		{CampaignDraft, CampaignCancelled, true},
		{CampaignCompleted, CampaignCancelled, false},
		{CampaignCancelled, CampaignPaused, false},
		{CampaignDraft, CampaignActive, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanAdminTransitionCampaign(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPasswordMatches(t *testing.T) {
	var p Password
	require.NoError(t, p.Set("correct horse"))

	ok, err := p.Matches("correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Matches("battery staple")
	require.NoError(t, err)
	assert.False(t, ok)
}
