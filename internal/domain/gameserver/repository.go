package gameserver

import "context"

type Repository interface {
	List(ctx context.Context) ([]Server, error)
	GetByName(ctx context.Context, name string) (Server, bool, error)
}
