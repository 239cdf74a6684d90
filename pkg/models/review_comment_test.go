package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendbridge/sendbridge-engine/pkg/apperrors"
)

func TestSeverityRank_Ordering(t *testing.T) {
	assert.Less(t, SeverityCritical.Rank(), SeverityMajor.Rank())
	assert.Less(t, SeverityMajor.Rank(), SeverityMinor.Rank())
	assert.Less(t, SeverityMinor.Rank(), SeverityInfo.Rank())
	assert.Greater(t, CommentSeverity("bogus").Rank(), SeverityInfo.Rank())
}

func TestIsValidCommentSeverity(t *testing.T) {
	for _, s := range []CommentSeverity{SeverityCritical, SeverityMajor, SeverityMinor, SeverityInfo} {
		assert.True(t, IsValidCommentSeverity(s))
	}
	assert.False(t, IsValidCommentSeverity("blocker"))
}

func TestResolve_OnlyOnce(t *testing.T) {
	c := &ReviewComment{Severity: SeverityMajor, Text: "BW units inconsistent on page 12"}
	resolver := uuid.New()
	at := time.Now()

	require.NoError(t, c.Resolve(resolver, "fixed unit conversion", at))
	assert.True(t, c.Resolved)
	require.NotNil(t, c.ResolvedBy)
	assert.Equal(t, resolver, *c.ResolvedBy)
	require.NotNil(t, c.ResolutionNotes)
	assert.Equal(t, "fixed unit conversion", *c.ResolutionNotes)

	err := c.Resolve(uuid.New(), "again", at.Add(time.Minute))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	// First resolution is untouched.
	assert.Equal(t, resolver, *c.ResolvedBy)
}

func TestResolve_EmptyNotesLeftUnset(t *testing.T) {
	c := &ReviewComment{Severity: SeverityInfo, Text: "nice catch"}
	require.NoError(t, c.Resolve(uuid.New(), "", time.Now()))
	assert.Nil(t, c.ResolutionNotes)
}
