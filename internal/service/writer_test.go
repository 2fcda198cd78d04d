package service

import (
	"context"
	"testing"

	"LotterySync/internal/interfaces"
	"LotterySync/internal/model"
	"LotterySync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalizedSouth(t *testing.T) []model.ProvinceRecord {
	records, err := NormalizeRecords(southBatch(), model.RegionSouth, day("2024-01-01"), "https://kqxs.pmsa.com.vn/kqxs/2024-01-01")
	require.NoError(t, err)
	return records
}

func TestSyncWriter_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	writer := NewSyncWriter(repository.NewDrawRepository(db), quietLogger())
	batch := &SyncBatch{Region: model.RegionSouth, DrawDate: day("2024-01-01"), Records: normalizedSouth(t), Source: "test", RunID: "run-1"}

	stats, err := writer.Write(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, &SyncStats{Draws: 3, Prizes: 27, Results: 27}, stats)
	draws, prizes, results := countRows(t, db)

	batch.RunID = "run-2"
	_, err = writer.Write(context.Background(), batch)
	require.NoError(t, err)
	d2, p2, r2 := countRows(t, db)
	assert.Equal(t, []int64{draws, prizes, results}, []int64{d2, p2, r2})
	assert.Equal(t, []int64{3, 27, 27}, []int64{d2, p2, r2})

	var regions, provinces, games int64
	db.Model(&model.Region{}).Count(&regions)
	db.Model(&model.Province{}).Count(&provinces)
	db.Model(&model.LotteryGame{}).Count(&games)
	assert.Equal(t, []int64{1, 3, 3}, []int64{regions, provinces, games})
}

func TestSyncWriter_NumbersRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewDrawRepository(db)
	records := normalizedSouth(t)
	_, err := NewSyncWriter(repo, quietLogger()).Write(context.Background(), &SyncBatch{
		Region: model.RegionSouth, DrawDate: day("2024-01-01"), Records: records, Source: "test",
	})
	require.NoError(t, err)

	draws, err := repo.ListDrawDetails(context.Background(), day("2024-01-01"))
	require.NoError(t, err)
	require.Len(t, draws, 3)

	byGame := make(map[string]*model.Draw)
	for _, d := range draws {
		require.NotNil(t, d.Game)
		byGame[d.Game.Code] = d
		assert.Equal(t, "completed", d.Status)
		assert.Equal(t, "https://kqxs.pmsa.com.vn/kqxs/2024-01-01", d.SourceURL)
		assert.Contains(t, string(d.RawFeed), `"import_source":"test"`)
	}
	for _, record := range records {
		d := byGame[record.GameCode]
		require.NotNil(t, d, record.GameCode)
		require.Len(t, d.Prizes, len(record.Results))
		for _, r := range record.Results {
			var found bool
			for _, p := range d.Prizes {
				if p.PrizeLevel != r.Level {
					continue
				}
				found = true
				require.Len(t, p.Results, 1)
				numbers, err := model.DecodeNumbers(p.Results[0].ResultNumbers)
				require.NoError(t, err)
				assert.Equal(t, r.Numbers, numbers)
				assert.True(t, p.RewardAmount.IsZero())
				assert.Equal(t, "VND", p.RewardCurrency)
			}
			assert.True(t, found, "%s %s", record.GameCode, r.Level)
		}
	}
}

func TestSyncWriter_ScopedToBatchGames(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewDrawRepository(db)
	writer := NewSyncWriter(repo, quietLogger())

	north, err := NormalizeRecords([]model.ProvinceRecord{fullRecord(model.RegionNorth, "ha_noi", "Ha Noi", 7)}, model.RegionNorth, day("2024-01-01"), "u")
	require.NoError(t, err)
	_, err = writer.Write(context.Background(), &SyncBatch{Region: model.RegionNorth, DrawDate: day("2024-01-01"), Records: north})
	require.NoError(t, err)
	_, err = writer.Write(context.Background(), &SyncBatch{Region: model.RegionSouth, DrawDate: day("2024-01-01"), Records: normalizedSouth(t)})
	require.NoError(t, err)
	_, err = writer.Write(context.Background(), &SyncBatch{Region: model.RegionSouth, DrawDate: day("2024-01-01"), Records: normalizedSouth(t)})
	require.NoError(t, err)

	draws, _, _ := countRows(t, db)
	assert.EqualValues(t, 4, draws)
}

// missingGamesRepo 模拟 upsert 后回查不到游戏
type missingGamesRepo struct {
	interfaces.DrawRepository
}

func (missingGamesRepo) ListGamesByCodes(context.Context, []string) ([]*model.LotteryGame, error) {
	return nil, nil
}

func TestSyncWriter_ConsistencyBreak(t *testing.T) {
	db := setupTestDB(t)
	repo := missingGamesRepo{DrawRepository: repository.NewDrawRepository(db)}
	_, err := NewSyncWriter(repo, quietLogger()).Write(context.Background(), &SyncBatch{
		Region: model.RegionSouth, DrawDate: day("2024-01-01"), Records: normalizedSouth(t),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConsistencyBreak)

	draws, _, _ := countRows(t, db)
	assert.Zero(t, draws)
}

func TestSyncWriter_EmptyBatch(t *testing.T) {
	db := setupTestDB(t)
	stats, err := NewSyncWriter(repository.NewDrawRepository(db), quietLogger()).Write(context.Background(), &SyncBatch{
		Region: model.RegionCentral, DrawDate: day("2024-01-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, &SyncStats{}, stats)
}

func TestSyncWriter_TwoSequencesForOneGame(t *testing.T) {
	db := setupTestDB(t)
	writer := NewSyncWriter(repository.NewDrawRepository(db), quietLogger())
	first := fullRecord(model.RegionSouth, "tien_giang", "Tien Giang", 1)
	second := fullRecord(model.RegionSouth, "tien_giang", "Tien Giang", 2)
	second.Sequence = 2
	records, err := NormalizeRecords([]model.ProvinceRecord{first, second}, model.RegionSouth, day("2024-01-01"), "u")
	require.NoError(t, err)
	batch := &SyncBatch{Region: model.RegionSouth, DrawDate: day("2024-01-01"), Records: records, Source: "test", RunID: "run-1"}

	stats, err := writer.Write(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, &SyncStats{Draws: 2, Prizes: 18, Results: 18}, stats)

	_, err = writer.Write(context.Background(), batch)
	require.NoError(t, err)
	draws, prizes, results := countRows(t, db)
	assert.Equal(t, []int64{2, 18, 18}, []int64{draws, prizes, results})

	var games int64
	db.Model(&model.LotteryGame{}).Count(&games)
	assert.Equal(t, int64(1), games)

	var sequences []int
	require.NoError(t, db.Model(&model.Draw{}).Order("sequence").Pluck("sequence", &sequences).Error)
	assert.Equal(t, []int{1, 2}, sequences)
}
