package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"LotterySync/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 内存 SQLite；单连接保证所有查询落在同一个库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.AllTables()...), "failed to migrate database schema")
	return db
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func day(raw string) time.Time {
	d, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		panic(err)
	}
	return d
}

// fullRecord 生成一个包含区域全部奖级的原始记录，号码带前导零
func fullRecord(region model.RegionCode, code, name string, seed int) model.ProvinceRecord {
	info, _ := model.LookupRegion(region)
	record := model.ProvinceRecord{Code: code, Name: name}
	for i, level := range info.PrizeOrder {
		numbers := []string{fmt.Sprintf("0%d%d", seed, i)}
		if level == model.PrizeSixth || level == model.PrizeThird {
			numbers = append(numbers, fmt.Sprintf("00%d%d", seed, i))
		}
		record.Results = append(record.Results, model.PrizeResult{Level: level, Numbers: numbers})
	}
	return record
}

func southBatch() []model.ProvinceRecord {
	return []model.ProvinceRecord{
		fullRecord(model.RegionSouth, "tien_giang", "Tien Giang", 1),
		fullRecord(model.RegionSouth, "kien_giang", "Kien Giang", 2),
		fullRecord(model.RegionSouth, "da_lat", "Da Lat", 3),
	}
}

type stubProducer struct {
	name    string
	records []model.ProvinceRecord
	err     error
	calls   int
}

func (p *stubProducer) GetName() string { return p.name }

func (p *stubProducer) Produce(_ context.Context, _ model.RegionCode, _ time.Time) ([]model.ProvinceRecord, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([]model.ProvinceRecord, len(p.records))
	copy(out, p.records)
	return out, nil
}

func countRows(t *testing.T, db *gorm.DB) (draws, prizes, results int64) {
	require.NoError(t, db.Model(&model.Draw{}).Count(&draws).Error)
	require.NoError(t, db.Model(&model.DrawPrize{}).Count(&prizes).Error)
	require.NoError(t, db.Model(&model.DrawResult{}).Count(&results).Error)
	return
}
