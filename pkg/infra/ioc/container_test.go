//go:build integration

// Package ioc_test contains integration tests for the IoC container. These
// tests require a running MongoDB instance and should only run in
// environments with database access (e.g. local dev or an integration CI job).
package ioc_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/golobby/container/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	mmentities "github.com/matchcore/core/pkg/domain/matchmaking/entities"
	mmin "github.com/matchcore/core/pkg/domain/matchmaking/ports/in"
	ioc "github.com/matchcore/core/pkg/infra/ioc"
)

var c container.Container

func getContainer(t *testing.T) container.Container {
	os.Setenv("DEV_ENV", "test")
	os.Setenv("MONGO_URI", "mongodb://127.0.0.1:37019/matchcore_test")
	os.Setenv("MONGODB_DATABASE", "matchcore_test")
	os.Setenv("LOCK_BACKEND", "memory")

	if c != nil {
		return c
	}

	b := ioc.NewContainerBuilder().WithEnvFile()
	require.NoError(t, ioc.WithStorage(b.Container))
	require.NoError(t, ioc.WithLockManager(b.Container))
	require.NoError(t, ioc.WithQueueManager(b.Container))
	require.NoError(t, ioc.WithSocketHub(b.Container))
	require.NoError(t, ioc.WithNotificationTrigger(b.Container))
	require.NoError(t, ioc.WithLobbyEngine(b.Container))
	require.NoError(t, ioc.WithMatchmakingService(b.Container))

	c = b.Build()
	return c
}

func TestResolveSubmitMatchRequestUseCase(t *testing.T) {
	cont := getContainer(t)

	var submit mmin.SubmitMatchRequestUseCase
	require.NoError(t, cont.Resolve(&submit))

	ctx := context.Background()
	cmd := mmin.SubmitMatchRequestCommand{
		UserID: uuid.New(),
		Criteria: mmentities.Criteria{
			Games:     []mmentities.GameWeight{{GameID: uuid.New(), Weight: 10}},
			GameMode:  mmentities.GameModeRanked,
			Regions:   []mmentities.Region{mmentities.RegionNA},
			GroupSize: mmentities.GroupSize{Min: 1, Max: 5},
		},
	}

	req, err := submit.Exec(ctx, cmd)
	require.NoError(t, err)
	require.NotNil(t, req)
	require.Equal(t, mmentities.RequestSearching, req.Status)
}

func TestResolveGetCurrentMatchRequestUseCase(t *testing.T) {
	cont := getContainer(t)

	var submit mmin.SubmitMatchRequestUseCase
	require.NoError(t, cont.Resolve(&submit))
	var current mmin.GetCurrentMatchRequestUseCase
	require.NoError(t, cont.Resolve(&current))

	ctx := context.Background()
	userID := uuid.New()
	cmd := mmin.SubmitMatchRequestCommand{
		UserID: userID,
		Criteria: mmentities.Criteria{
			Games:     []mmentities.GameWeight{{GameID: uuid.New(), Weight: 10}},
			GameMode:  mmentities.GameModeRanked,
			Regions:   []mmentities.Region{mmentities.RegionNA},
			GroupSize: mmentities.GroupSize{Min: 1, Max: 5},
		},
	}
	_, err := submit.Exec(ctx, cmd)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	result, err := current.Exec(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, result.Request)
	require.GreaterOrEqual(t, result.Queue.EstimatedWaitSeconds, 0)
}
