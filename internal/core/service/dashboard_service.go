package service

import (
	"context"
	"fmt"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

const recentRegistrationsLimit = 5

type dashboardService struct {
	stats ports.StatsRepository
}

func NewDashboardService(stats ports.StatsRepository) ports.DashboardService {
	return &dashboardService{stats: stats}
}

func (s *dashboardService) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	stats, err := s.stats.Stats(ctx, recentRegistrationsLimit)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	if stats.RecentRegistrations == nil {
		stats.RecentRegistrations = []*domain.RegistrationView{}
	}
	return stats, nil
}
