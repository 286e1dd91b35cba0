package sqlite

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Credential(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t)

	_, err := s.Credential(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.SaveCredential(ctx, "gsk_one"))
	require.NoError(t, s.SaveCredential(ctx, "gsk_two"))
	got, err := s.Credential(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gsk_two", got)

	require.NoError(t, s.ClearCredential(ctx))
	require.NoError(t, s.ClearCredential(ctx))
	_, err = s.Credential(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_LastAnalysis(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t)

	_, err := s.LastAnalysis(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	score := 91.0
	first := domain.Analysis{ID: "a1", Flow: domain.FlowAnalysis, Model: domain.DefaultModel,
		Result: domain.OptimizationResult{ATSScore: &score, MissingKeywords: []string{"Kafka"}}}
	second := domain.Analysis{ID: "a2", Flow: domain.FlowSections, Model: domain.DefaultModel,
		Result: domain.OptimizationResult{
			CoreSkills:               []string{"Go"},
			PersonalizedAchievements: []domain.Achievement{{Role: "SRE", Achievement: "Halved MTTR", Keywords: []string{"MTTR"}}},
			KeywordDensity:           map[string]float64{"go": 2},
		}}

	require.NoError(t, s.SaveLastAnalysis(ctx, first))
	got, err := s.LastAnalysis(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	require.NoError(t, s.SaveLastAnalysis(ctx, second))
	got, err = s.LastAnalysis(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveCredential(ctx, "gsk_keep"))
	require.NoError(t, s.Close())

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	s2, err := Open(ctx, dir)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()
	got, err := s2.Credential(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gsk_keep", got)
}
