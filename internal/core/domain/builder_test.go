package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestBuilderHandle_Transition(t *testing.T) {
	h := &domain.BuilderHandle{Name: "greenroom", State: domain.BuilderAbsent}
	assert.False(t, h.Usable())

	for _, to := range []domain.BuilderState{
		domain.BuilderCreating,
		domain.BuilderCurrent,
		domain.BuilderStale,
		domain.BuilderRecreating,
		domain.BuilderCurrent,
	} {
		require.NoError(t, h.Transition(to))
	}
	assert.True(t, h.Usable())
}

func TestBuilderHandle_Transition_Rejected(t *testing.T) {
	h := &domain.BuilderHandle{State: domain.BuilderCurrent}

	err := h.Transition(domain.BuilderCreating)
	require.ErrorIs(t, err, domain.ErrInvalidBuilderTransition)
	assert.Equal(t, domain.BuilderCurrent, h.State)

	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, "current", zErr.Metadata()["from"])
	assert.Equal(t, "creating", zErr.Metadata()["to"])
}
