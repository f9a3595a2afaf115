package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
)

type GameServerRepository struct {
	mu      sync.RWMutex
	servers []gameserver.Server
}

func NewGameServerRepository(servers []gameserver.Server) *GameServerRepository {
	return &GameServerRepository{servers: append([]gameserver.Server(nil), servers...)}
}

// List keeps registration order; server selection relies on it.
func (r *GameServerRepository) List(_ context.Context) ([]gameserver.Server, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]gameserver.Server(nil), r.servers...), nil
}

func (r *GameServerRepository) GetByName(_ context.Context, name string) (gameserver.Server, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.servers {
		if strings.EqualFold(item.Name, strings.TrimSpace(name)) {
			return item, true, nil
		}
	}
	return gameserver.Server{}, false, nil
}
