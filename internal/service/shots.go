package service

import (
	"context"

	"espresso_panel/internal/models"
	"espresso_panel/internal/repository"
)

const maxShotPage = 500

// ShotHistoryService lists rotated shot logs.
type ShotHistoryService struct {
	shots repository.ShotRepo
}

func NewShotHistoryService(shots repository.ShotRepo) *ShotHistoryService {
	return &ShotHistoryService{shots: shots}
}

// Recent returns at most limit shots, newest first. The limit is capped.
func (s *ShotHistoryService) Recent(ctx context.Context, limit int) ([]models.Shot, error) {
	if limit > maxShotPage {
		limit = maxShotPage
	}
	shots, err := s.shots.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if shots == nil {
		shots = []models.Shot{}
	}
	return shots, nil
}
