package types

import (
	"errors"
	"time"
)

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrInvalidLimit   = errors.New("leaderboard limit must not be negative")
)

// Member represents a user's economy state within a single guild.
// Scores are guild-scoped, so the same Discord user has one row per guild.
// A zero LastClaimAt means the row was created by an info lookup and the
// member has never completed a claim.
type Member struct {
	UserID      uint64    `bun:"user_id,pk"           json:"userId"`
	GuildID     uint64    `bun:"guild_id,pk"          json:"guildId"`
	Score       int64     `bun:",notnull,default:0"   json:"score"`
	LastClaimAt time.Time `bun:",nullzero"            json:"lastClaimAt"`
}

// HasClaimed reports whether the member has ever completed a successful claim.
func (m *Member) HasClaimed() bool {
	return m != nil && !m.LastClaimAt.IsZero()
}

// LeaderboardEntry is the projection returned by leaderboard queries.
type LeaderboardEntry struct {
	UserID uint64 `bun:"user_id" json:"userId"`
	Score  int64  `bun:"score"   json:"score"`
}
