package postgres

import "time"

type teamTableModel struct {
	ID          int64      `db:"id"`
	CommunityID string     `db:"community_id"`
	Name        string     `db:"name"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at"`
}

type teamInsertModel struct {
	CommunityID string `db:"community_id"`
	Name        string `db:"name"`
}

type teamVenueTableModel struct {
	ID              int64      `db:"id"`
	TeamCommunityID string     `db:"team_community_id"`
	ChannelID       string     `db:"channel_id"`
	Format          string     `db:"format"`
	CreatedAt       time.Time  `db:"created_at"`
	DeletedAt       *time.Time `db:"deleted_at"`
}

type gameServerTableModel struct {
	ID           int64      `db:"id"`
	Name         string     `db:"name"`
	Address      string     `db:"address"`
	RconPassword string     `db:"rcon_password"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

type gameServerInsertModel struct {
	Name         string `db:"name"`
	Address      string `db:"address"`
	RconPassword string `db:"rcon_password"`
}
