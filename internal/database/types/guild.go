package types

import "errors"

var (
	ErrGuildNotFound   = errors.New("guild not found")
	ErrInvalidCooldown = errors.New("cooldown must not be negative")
)

// DefaultCooldownSeconds is applied to guilds that never configured a cooldown.
const DefaultCooldownSeconds = 3600

// Guild represents one Discord server's economy state.
// LastClaimantID is 0 until the first successful claim in the guild.
// MasterRoleID is 0 when no leader role has been configured.
type Guild struct {
	ID              uint64 `bun:",pk"                            json:"id"`
	LastClaimantID  uint64 `bun:",nullzero"                      json:"lastClaimantId"`
	CooldownSeconds int64  `bun:",notnull,default:3600"          json:"cooldownSeconds"`
	MasterRoleID    uint64 `bun:",nullzero"                      json:"masterRoleId"`
}
