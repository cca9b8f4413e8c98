package database

import (
	"github.com/bytegrab/bytegrab/internal/database/service"
	"github.com/bytegrab/bytegrab/internal/economy"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Service provides access to all business logic services.
type Service struct {
	economy *service.EconomyService
}

// NewService creates a new service instance with all services.
func NewService(db *bun.DB, repository *Repository, engine *economy.Engine, logger *zap.Logger) *Service {
	return &Service{
		economy: service.NewEconomy(db, repository.Guild(), repository.Member(), engine, logger),
	}
}

// Economy returns the economy service.
func (s *Service) Economy() *service.EconomyService {
	return s.economy
}
