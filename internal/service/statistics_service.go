package service

import (
	"context"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, orgID uuid.UUID, startDate, endDate time.Time) (model.ProcurementStatistics, error)
}

type statisticsService struct {
	statsRepo repository.StatisticsRepository
}

func NewStatisticsService(statsRepo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{statsRepo: statsRepo}
}

// GetStatistics assembles the procurement dashboard for the given window.
func (s *statisticsService) GetStatistics(ctx context.Context, orgID uuid.UUID, startDate, endDate time.Time) (model.ProcurementStatistics, error) {
	response := model.ProcurementStatistics{
		TimeRangeStartDate: startDate,
		TimeRangeEndDate:   endDate,
	}

	counts, err := s.statsRepo.CountPOsByStatus(ctx, orgID, startDate, endDate)
	if err != nil {
		return model.ProcurementStatistics{}, apperror.Wrap(apperror.KindInternal, err, "failed to count purchase orders")
	}
	response.POCountByStatus = counts

	spend, approvedCount, err := s.statsRepo.GetSpendTotal(ctx, orgID, startDate, endDate)
	if err != nil {
		return model.ProcurementStatistics{}, apperror.Wrap(apperror.KindInternal, err, "failed to compute spend")
	}
	response.TotalSpend = spend
	response.ApprovedPOCount = approvedCount

	topVendors, err := s.statsRepo.GetTopVendorsBySpend(ctx, orgID, startDate, endDate, 5)
	if err != nil {
		return model.ProcurementStatistics{}, apperror.Wrap(apperror.KindInternal, err, "failed to rank vendors")
	}
	response.TopVendors = topVendors

	overdue, err := s.statsRepo.CountOverdueApprovals(ctx, orgID)
	if err != nil {
		return model.ProcurementStatistics{}, apperror.Wrap(apperror.KindInternal, err, "failed to count overdue approvals")
	}
	response.OverdueApprovals = overdue

	return response, nil
}
