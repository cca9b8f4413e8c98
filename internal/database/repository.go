package database

import (
	"github.com/bytegrab/bytegrab/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	guild  *models.GuildModel
	member *models.MemberModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		guild:  models.NewGuild(db, logger),
		member: models.NewMember(db, logger),
	}
}

// Guild returns the guild model repository.
func (r *Repository) Guild() *models.GuildModel {
	return r.guild
}

// Member returns the member model repository.
func (r *Repository) Member() *models.MemberModel {
	return r.member
}
