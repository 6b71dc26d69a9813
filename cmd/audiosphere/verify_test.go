package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"audiosphere/internal/config"
)

func smallConfig() config.Config {
	cfg := config.Default()
	cfg.Particles.Size = 8
	cfg.Particles.Seed = 11
	cfg.VerifySteps = 120
	return cfg
}

func TestVerify_StaysBounded(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, verify(context.Background(), smallConfig(), zap.NewNop(), &out))
	assert.Contains(t, out.String(), "steps=120 particles=64")
	assert.Contains(t, out.String(), "bounded=true")
}

func TestSimulateHeadless_Report(t *testing.T) {
	rep, err := simulateHeadless(context.Background(), smallConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 120, rep.Steps)
	assert.Equal(t, 64, rep.Particles)
	assert.Greater(t, rep.MaxRadius, float32(0))
	assert.True(t, rep.Bounded())
}

func TestSimulateHeadless_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := simulateHeadless(ctx, smallConfig(), zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rep.Steps)
}

func TestVerifyReport_Bounded(t *testing.T) {
	assert.True(t, verifyReport{MaxRadius: 1.2}.Bounded())
	assert.False(t, verifyReport{MaxRadius: 1.6}.Bounded())
}
