// Package economy implements the claim decision rules. The engine performs
// no I/O; callers load guild and member state, evaluate a claim, and persist
// the outcome themselves.
package economy

import (
	"fmt"
	"time"

	"github.com/bytegrab/bytegrab/internal/database/types"
)

// DefaultStreakMultiplier doubles a member's score on consecutive claims.
const DefaultStreakMultiplier = 2

// Outcome describes the result of a single claim attempt.
type Outcome struct {
	// Accepted is false when the member is still on cooldown.
	Accepted bool
	// Awarded is the number of bytes granted by this claim.
	Awarded int64
	// NewScore is the member's score after the claim is applied.
	NewScore int64
	// Remaining is the time left on the cooldown for rejected claims.
	Remaining time.Duration
}

// Engine evaluates claim attempts against guild and member state.
type Engine struct {
	multiplier int64
}

// NewEngine creates an engine with the given streak multiplier.
// Multipliers below 2 fall back to the default.
func NewEngine(multiplier int64) *Engine {
	if multiplier < 2 {
		multiplier = DefaultStreakMultiplier
	}

	return &Engine{multiplier: multiplier}
}

// Evaluate decides the outcome of a claim attempt at the given time.
// The member may be nil or a row that has never claimed; both take the
// first-claim path and seed the score at 1. The function is deterministic
// and mutates nothing.
func (e *Engine) Evaluate(guild *types.Guild, member *types.Member, now time.Time) Outcome {
	if member != nil && member.Score < 0 {
		panic(fmt.Sprintf("economy: negative score %d for member %d in guild %d",
			member.Score, member.UserID, member.GuildID))
	}

	// Cooldown is per (guild, member); a zero cooldown always accepts.
	if member.HasClaimed() {
		cooldown := time.Duration(guild.CooldownSeconds) * time.Second
		if elapsed := now.Sub(member.LastClaimAt); elapsed < cooldown {
			return Outcome{Remaining: cooldown - elapsed}
		}
	}

	// First ever claim in this guild seeds the score regardless of who
	// claimed last.
	if !member.HasClaimed() {
		return Outcome{Accepted: true, Awarded: 1, NewScore: 1}
	}

	// An unbroken streak compounds the score; any intervening claimant
	// resets the bonus to a flat increment.
	if member.UserID == guild.LastClaimantID {
		newScore := member.Score * e.multiplier
		return Outcome{Accepted: true, Awarded: newScore - member.Score, NewScore: newScore}
	}

	return Outcome{Accepted: true, Awarded: 1, NewScore: member.Score + 1}
}
