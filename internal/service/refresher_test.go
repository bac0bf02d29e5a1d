package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrazyWorldPL/IVshop/internal/models"
)

// addressStatus answers per address and fails for unknown ones.
type addressStatus map[string]*models.ServerStatus

func (s addressStatus) Status(_ context.Context, address string) (*models.ServerStatus, error) {
	if status, ok := s[address]; ok {
		return status, nil
	}
	return nil, errors.New("lookup failed")
}

func TestRefreshAll_SkipsFailingServers(t *testing.T) {
	e := newEnv(t)
	up, _ := e.seed(t, "10.0.0.1:25575", "say hi")
	down, _ := e.seed(t, "10.0.0.2:25575", "say hi")
	ctx := context.Background()

	status := addressStatus{
		"10.0.0.1": {Online: true, Version: "1.21", PlayersOnline: 4, PlayersMax: 50},
	}
	refresher := NewStatusRefresher(e.servers, status, "@every 1m", testLogger())

	assert.Equal(t, 1, refresher.RefreshAll(ctx))

	got, err := e.servers.FindByID(ctx, up.ID)
	require.NoError(t, err)
	assert.True(t, got.Online)
	assert.Equal(t, "1.21", got.Version)
	assert.Equal(t, "4/50", got.Players)

	got, err = e.servers.FindByID(ctx, down.ID)
	require.NoError(t, err)
	assert.False(t, got.Online)
}

func TestStatusRefresher_InvalidSchedule(t *testing.T) {
	e := newEnv(t)
	refresher := NewStatusRefresher(e.servers, addressStatus{}, "every now and then", testLogger())
	assert.Error(t, refresher.Start())
}
