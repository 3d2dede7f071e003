package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cmm-stock/internal/adapters/persistence/models"
	"cmm-stock/internal/core/domain"
	"cmm-stock/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func sampleTransaction(item string, qty int) *models.Transaction {
	return &models.Transaction{
		PickupDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PlateNumber:   "B 1234 CD",
		Driver:        "Budi",
		Source:        "Gudang Cikarang",
		ItemName:      item,
		UnitOfMeasure: "PCS",
		Quantity:      qty,
	}
}

func TestCreateAllocatesSequentialIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(testutil.OpenDB(t))

	for i := 0; i < 12; i++ {
		rec := sampleTransaction("Semen", 10)
		require.NoError(t, repo.Create(ctx, domain.ClassInbound, "CMMIN010124", rec))
		assert.Equal(t, fmt.Sprintf("CMMIN010124%04d", i), rec.HumanID)
		assert.NotZero(t, rec.ID)
	}
}

func TestClassesAndDaysHaveIndependentSequences(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(testutil.OpenDB(t))

	in := sampleTransaction("Semen", 1)
	require.NoError(t, repo.Create(ctx, domain.ClassInbound, "CMMIN010124", in))
	out := sampleTransaction("Semen", 1)
	require.NoError(t, repo.Create(ctx, domain.ClassOutbound, "CMMOUT010124", out))
	nextDay := sampleTransaction("Semen", 1)
	require.NoError(t, repo.Create(ctx, domain.ClassInbound, "CMMIN020124", nextDay))

	assert.Equal(t, "CMMIN0101240000", in.HumanID)
	assert.Equal(t, "CMMOUT0101240000", out.HumanID)
	assert.Equal(t, "CMMIN0201240000", nextDay.HumanID)
}

func TestSequenceSeededFromExistingRows(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := NewTransactionRepository(db)

	// rows written before the sequence table existed
	for _, id := range []string{"CMMIN0101240000", "CMMIN0101240007", "CMMIN0101240003", "CMMIN3112230099"} {
		rec := sampleTransaction("Legacy", 1)
		rec.HumanID = id
		require.NoError(t, db.Table(domain.ClassInbound.Table()).Create(rec).Error)
	}

	next, err := repo.PeekNextSequence(ctx, domain.ClassInbound, "CMMIN010124")
	require.NoError(t, err)
	assert.Equal(t, 8, next)

	rec := sampleTransaction("Baru", 1)
	require.NoError(t, repo.Create(ctx, domain.ClassInbound, "CMMIN010124", rec))
	assert.Equal(t, "CMMIN0101240008", rec.HumanID)
}

func TestPeekDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(testutil.OpenDB(t))

	next, err := repo.PeekNextSequence(ctx, domain.ClassOutbound, "CMMOUT050224")
	require.NoError(t, err)
	assert.Equal(t, 0, next)

	next, err = repo.PeekNextSequence(ctx, domain.ClassOutbound, "CMMOUT050224")
	require.NoError(t, err)
	assert.Equal(t, 0, next)

	rec := sampleTransaction("Pasir", 2)
	require.NoError(t, repo.Create(ctx, domain.ClassOutbound, "CMMOUT050224", rec))
	assert.Equal(t, "CMMOUT0502240000", rec.HumanID)

	next, err = repo.PeekNextSequence(ctx, domain.ClassOutbound, "CMMOUT050224")
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestCreateRejectsExhaustedSequence(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := NewTransactionRepository(db)

	require.NoError(t, db.Create(&models.TransactionSequence{Prefix: "CMMIN010124", NextSeq: 10000}).Error)

	err := repo.Create(ctx, domain.ClassInbound, "CMMIN010124", sampleTransaction("Semen", 1))
	assert.ErrorIs(t, err, domain.ErrSequenceExhausted)

	rows, _, err := repo.List(ctx, domain.ClassInbound, TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(testutil.OpenDB(t))

	rec := sampleTransaction("Semen", 10)
	require.NoError(t, repo.Create(ctx, domain.ClassInbound, "CMMIN010124", rec))

	changed := sampleTransaction("Besi", 25)
	updated, err := repo.Update(ctx, domain.ClassInbound, rec.HumanID, changed)
	require.NoError(t, err)
	assert.Equal(t, rec.HumanID, updated.HumanID)
	assert.Equal(t, "Besi", updated.ItemName)
	assert.Equal(t, 25, updated.Quantity)

	_, err = repo.Update(ctx, domain.ClassInbound, "CMMIN0101249999", changed)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	n, err := repo.Delete(ctx, domain.ClassInbound, "CMMIN0101249999")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.Delete(ctx, domain.ClassInbound, rec.HumanID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = repo.GetByHumanID(ctx, domain.ClassInbound, rec.HumanID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListSearchSortAndPage(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(testutil.OpenDB(t))

	for i, item := range []string{"Semen", "Besi Beton", "Pasir", "Besi Hollow"} {
		require.NoError(t, repo.Create(ctx, domain.ClassOutbound, "CMMOUT010124", sampleTransaction(item, (i+1)*10)))
	}

	rows, total, err := repo.List(ctx, domain.ClassOutbound, TransactionFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, rows, 4)
	assert.Equal(t, "Semen", rows[0].ItemName)

	rows, total, err = repo.List(ctx, domain.ClassOutbound, TransactionFilter{Search: "BESI"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 2)

	rows, total, err = repo.List(ctx, domain.ClassOutbound, TransactionFilter{Sort: "qty", Desc: true, Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, rows, 2)
	assert.Equal(t, 40, rows[0].Quantity)
	assert.Equal(t, 30, rows[1].Quantity)

	// unknown sort columns are ignored rather than interpolated
	rows, _, err = repo.List(ctx, domain.ClassOutbound, TransactionFilter{Sort: "qty; DROP TABLE users"})
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestSyncSequenceSkipsForeignRows(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := NewTransactionRepository(db)

	first := sampleTransaction("Semen", 1)
	require.NoError(t, repo.Create(ctx, domain.ClassInbound, "CMMIN010124", first))

	// a writer that bypasses the sequence table
	rogue := sampleTransaction("Rogue", 1)
	rogue.HumanID = "CMMIN0101240001"
	require.NoError(t, db.Table(domain.ClassInbound.Table()).Create(rogue).Error)

	err := repo.Create(ctx, domain.ClassInbound, "CMMIN010124", sampleTransaction("Semen", 1))
	require.Error(t, err)
	assert.True(t, IsDuplicate(err))

	require.NoError(t, repo.SyncSequence(ctx, domain.ClassInbound, "CMMIN010124"))

	rec := sampleTransaction("Semen", 1)
	require.NoError(t, repo.Create(ctx, domain.ClassInbound, "CMMIN010124", rec))
	assert.Equal(t, "CMMIN0101240002", rec.HumanID)
}

// Two allocators that both read next_seq before either commits would hand out
// the same number. Rewinding the row reproduces what the second one sees.
func TestInterleavedAllocationHitsUniqueIndex(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := NewTransactionRepository(db)

	first := sampleTransaction("Semen", 1)
	require.NoError(t, repo.Create(ctx, domain.ClassOutbound, "CMMOUT010124", first))
	assert.Equal(t, "CMMOUT0101240000", first.HumanID)

	require.NoError(t, db.Model(&models.TransactionSequence{}).
		Where("prefix = ?", "CMMOUT010124").
		Update("next_seq", 0).Error)

	err := repo.Create(ctx, domain.ClassOutbound, "CMMOUT010124", sampleTransaction("Pasir", 1))
	require.Error(t, err)
	assert.True(t, IsDuplicate(err))

	var count int64
	require.NoError(t, db.Table(domain.ClassOutbound.Table()).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var seq models.TransactionSequence
	require.NoError(t, db.Where("prefix = ?", "CMMOUT010124").Take(&seq).Error)
	assert.Zero(t, seq.NextSeq, "failed insert must not advance the sequence")
}
