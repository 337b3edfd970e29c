package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/baratadiego/appestagio/internal/model"
)

// StatisticsRepository 统计快照（单行）访问接口
type StatisticsRepository interface {
	// Get 快照尚未计算过时返回 gorm.ErrRecordNotFound
	Get(ctx context.Context) (*model.StatisticsSnapshot, error)
	// Save 覆盖唯一的快照行，不存在时插入
	Save(ctx context.Context, snap *model.StatisticsSnapshot) error
}

type statisticsRepo struct {
	db *gorm.DB
}

// NewStatisticsRepo 创建 StatisticsRepository 实例
func NewStatisticsRepo(db *gorm.DB) StatisticsRepository {
	return &statisticsRepo{db: db}
}

func (r *statisticsRepo) Get(ctx context.Context) (*model.StatisticsSnapshot, error) {
	var snap model.StatisticsSnapshot
	err := r.db.WithContext(ctx).
		Where("singleton = ?", true).
		First(&snap).Error
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *statisticsRepo) Save(ctx context.Context, snap *model.StatisticsSnapshot) error {
	snap.Singleton = true
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "singleton"}},
			UpdateAll: true,
		}).
		Create(snap).Error
}
