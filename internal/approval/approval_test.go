package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name                     string
		brand, influencer, admin string
		want                     string
	}{
		{"all pending", Pending, Pending, Pending, Pending},
		{"partial approval", Approved, Approved, Pending, Pending},
		{"all approved", Approved, Approved, Approved, Approved},
		{"brand rejected", Rejected, Approved, Pending, Rejected},
		{"admin rejected after parties approved", Approved, Approved, Rejected, Rejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.brand, tt.influencer, tt.admin))
		})
	}
}

func TestTransition(t *testing.T) {
	assert.NoError(t, Transition(Pending, Approved))
	assert.NoError(t, Transition(Pending, Rejected))
	assert.ErrorIs(t, Transition(Approved, Approved), ErrInvalidTransition)
	assert.ErrorIs(t, Transition(Rejected, Approved), ErrInvalidTransition)
	assert.ErrorIs(t, Transition(Pending, Pending), ErrInvalidDecision)
	assert.ErrorIs(t, Transition(Pending, "MAYBE"), ErrInvalidDecision)
}

func TestApplyFullApproval(t *testing.T) {
	s := NewState()

	s, err := s.Apply(Brand, Approved, "")
	require.NoError(t, err)
	s, err = s.Apply(Influencer, Approved, "")
	require.NoError(t, err)
	assert.Equal(t, Pending, s.Status())

	s, err = s.Apply(Admin, Approved, "")
	require.NoError(t, err)
	assert.Equal(t, Approved, s.Status())
}

func TestApplyRules(t *testing.T) {
	s := NewState()

	_, err := s.Apply(Admin, Approved, "")
	assert.ErrorIs(t, err, ErrAwaitingParties)

	_, err = s.Apply(Influencer, Rejected, "")
	assert.ErrorIs(t, err, ErrReasonRequired)

	s, err = s.Apply(Brand, Approved, "")
	require.NoError(t, err)
	_, err = s.Apply(Brand, Approved, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Admin may reject before the parties finish.
	rejected, err := s.Apply(Admin, Rejected, "missing deliverables")
	require.NoError(t, err)
	assert.Equal(t, Rejected, rejected.Status())

	_, err = rejected.Apply(Influencer, Approved, "")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestColumn(t *testing.T) {
	assert.Equal(t, "brand_approval", Column(Brand))
	assert.Equal(t, "influencer_approval", Column(Influencer))
	assert.Equal(t, "admin_approval", Column(Admin))
}
