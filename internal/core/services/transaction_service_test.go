package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"cmm-stock/internal/adapters/persistence/models"
	"cmm-stock/internal/adapters/persistence/repositories"
	"cmm-stock/internal/core/domain"
	"cmm-stock/internal/pkg/pagination"
	"cmm-stock/internal/pkg/validation"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func qty(n int) *Quantity {
	q := Quantity(n)
	return &q
}

func validInput(item string) *TransactionInput {
	return &TransactionInput{
		PickupDate:    "2024-01-01",
		PlateNumber:   "B 1234 CD",
		Driver:        "Budi",
		Source:        "Gudang Cikarang",
		ItemName:      item,
		UnitOfMeasure: "PCS",
		Quantity:      qty(10),
	}
}

func countRows(t *testing.T, f *fixture, class domain.TransactionClass) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Table(class.Table()).Count(&n).Error)
	return n
}

func TestCreateAssignsDailySequentialIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.txns.Create(ctx, domain.ClassInbound, validInput("Semen"))
	require.NoError(t, err)
	second, err := f.txns.Create(ctx, domain.ClassInbound, validInput("Pasir"))
	require.NoError(t, err)
	out, err := f.txns.Create(ctx, domain.ClassOutbound, validInput("Semen"))
	require.NoError(t, err)

	assert.Equal(t, "CMMIN0101240000", first.HumanID)
	assert.Equal(t, "CMMIN0101240001", second.HumanID)
	assert.Equal(t, "CMMOUT0101240000", out.HumanID)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.TransactionsCreated.WithLabelValues("inbound")))

	f.clock.Advance(24 * time.Hour)
	nextDay, err := f.txns.Create(ctx, domain.ClassInbound, validInput("Semen"))
	require.NoError(t, err)
	assert.Equal(t, "CMMIN0201240000", nextDay.HumanID)
}

func TestCreateRejectsMissingFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput("Semen")
	in.Quantity = nil
	_, err := f.txns.Create(ctx, domain.ClassInbound, in)

	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("qty", "required"))
	assert.Zero(t, countRows(t, f, domain.ClassInbound))

	in = validInput("  ")
	in.Quantity = qty(0)
	_, err = f.txns.Create(ctx, domain.ClassInbound, in)
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("nama_barang", "required"))
	assert.True(t, verr.Has("qty", "gt"))
	assert.Zero(t, countRows(t, f, domain.ClassInbound))
}

func TestCreateRejectsBadPickupDate(t *testing.T) {
	f := newFixture(t)

	in := validInput("Semen")
	in.PickupDate = "kemarin"
	_, err := f.txns.Create(context.Background(), domain.ClassInbound, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQuantityAcceptsNumbersAndStrings(t *testing.T) {
	var in TransactionInput
	require.NoError(t, json.Unmarshal([]byte(`{"qty": 12}`), &in))
	assert.Equal(t, Quantity(12), *in.Quantity)

	require.NoError(t, json.Unmarshal([]byte(`{"qty": "7"}`), &in))
	assert.Equal(t, Quantity(7), *in.Quantity)

	assert.Error(t, json.Unmarshal([]byte(`{"qty": "tujuh"}`), &in))
}

func TestConcurrentCreatesGetDistinctIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 20
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := f.txns.Create(ctx, domain.ClassOutbound, validInput(fmt.Sprintf("Item %d", i)))
			if assert.NoError(t, err) {
				ids <- rec.HumanID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	for i := 0; i < n; i++ {
		assert.True(t, seen[fmt.Sprintf("CMMOUT010124%04d", i)])
	}
}

func TestCreateRetriesAfterForeignDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.txns.Create(ctx, domain.ClassInbound, validInput("Semen"))
	require.NoError(t, err)

	rogue := models.Transaction{
		HumanID:       "CMMIN0101240001",
		PickupDate:    jan1,
		PlateNumber:   "B 1 X",
		Driver:        "Andi",
		Source:        "Import",
		ItemName:      "Besi",
		UnitOfMeasure: "KG",
		Quantity:      1,
	}
	require.NoError(t, f.db.Table(domain.ClassInbound.Table()).Create(&rogue).Error)

	rec, err := f.txns.Create(ctx, domain.ClassInbound, validInput("Pasir"))
	require.NoError(t, err)
	assert.Equal(t, "CMMIN0101240002", rec.HumanID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AllocationRetries.WithLabelValues("inbound")))
}

func TestPeekNextIDDoesNotConsume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.txns.PeekNextID(ctx, domain.ClassInbound)
	require.NoError(t, err)
	assert.Equal(t, "CMMIN0101240000", id)

	id, err = f.txns.PeekNextID(ctx, domain.ClassInbound)
	require.NoError(t, err)
	assert.Equal(t, "CMMIN0101240000", id)

	rec, err := f.txns.Create(ctx, domain.ClassInbound, validInput("Semen"))
	require.NoError(t, err)
	assert.Equal(t, "CMMIN0101240000", rec.HumanID)

	id, err = f.txns.PeekNextID(ctx, domain.ClassInbound)
	require.NoError(t, err)
	assert.Equal(t, "CMMIN0101240001", id)
}

func TestListIsCachedAndInvalidatedOnWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rows, total, err := f.txns.List(ctx, domain.ClassInbound, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, total)

	_, _, err = f.txns.List(ctx, domain.ClassInbound, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ListCacheLookups.WithLabelValues("inbound", "hit")))

	_, err = f.txns.Create(ctx, domain.ClassInbound, validInput("Semen"))
	require.NoError(t, err)

	rows, total, err = f.txns.List(ctx, domain.ClassInbound, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Semen", rows[0].ItemName)
}

func TestListWithQueryBypassesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, item := range []string{"Semen", "Pasir", "Semen Putih"} {
		_, err := f.txns.Create(ctx, domain.ClassInbound, validInput(item))
		require.NoError(t, err)
	}

	params := pagination.New(1, 1)
	params.Search = "semen"
	rows, total, err := f.txns.List(ctx, domain.ClassInbound, params)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 1)

	for _, key := range f.cache.keys() {
		assert.True(t, strings.HasSuffix(key, ":gen"), "unexpected cache entry %s", key)
	}
}

// beforeListSet runs hook once, just before the first listing is stored
type beforeListSet struct {
	*memCache
	once sync.Once
	hook func()
}

func (c *beforeListSet) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !strings.HasSuffix(key, ":gen") {
		c.once.Do(c.hook)
	}
	return c.memCache.Set(ctx, key, value, ttl)
}

func TestWriteDuringListIsNotHiddenByCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	racing := &beforeListSet{memCache: newMemCache()}
	svc := NewTransactionService(repositories.NewTransactionRepository(f.db), racing, time.Minute, f.clock, f.metrics)
	racing.hook = func() {
		_, err := svc.Create(ctx, domain.ClassInbound, validInput("Semen"))
		require.NoError(t, err)
	}

	rows, _, err := svc.List(ctx, domain.ClassInbound, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, total, err := svc.List(ctx, domain.ClassInbound, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Semen", rows[0].ItemName)
}

func TestListByPickupDateRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, day := range []string{"2024-01-01", "2024-01-15", "2024-01-31", "2024-02-01"} {
		in := validInput("Semen " + day)
		in.PickupDate = day
		_, err := f.txns.Create(ctx, domain.ClassOutbound, in)
		require.NoError(t, err)
	}

	params := &pagination.Params{From: "2024-01-15", To: "2024-01-31"}
	rows, total, err := f.txns.List(ctx, domain.ClassOutbound, params)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "Semen 2024-01-15", rows[0].ItemName)
	assert.Equal(t, "Semen 2024-01-31", rows[1].ItemName)

	rows, _, err = f.txns.List(ctx, domain.ClassOutbound, &pagination.Params{To: "2024-01-01"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, _, err = f.txns.List(ctx, domain.ClassOutbound, &pagination.Params{From: "15-01-2024"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = f.txns.List(ctx, domain.ClassOutbound, &pagination.Params{From: "2024-02-01", To: "2024-01-01"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.txns.Create(ctx, domain.ClassOutbound, validInput("Semen"))
	require.NoError(t, err)

	in := validInput("Semen Putih")
	in.Quantity = qty(3)
	updated, err := f.txns.Update(ctx, domain.ClassOutbound, rec.HumanID, in)
	require.NoError(t, err)
	assert.Equal(t, rec.HumanID, updated.HumanID)
	assert.Equal(t, "Semen Putih", updated.ItemName)
	assert.Equal(t, 3, updated.Quantity)

	_, err = f.txns.Update(ctx, domain.ClassOutbound, "CMMOUT0101249999", validInput("X"))
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	require.NoError(t, f.txns.Delete(ctx, domain.ClassOutbound, rec.HumanID))
	_, err = f.txns.Get(ctx, domain.ClassOutbound, rec.HumanID)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestDeleteUnknownLeavesTableUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.txns.Create(ctx, domain.ClassInbound, validInput("Semen"))
	require.NoError(t, err)

	err = f.txns.Delete(ctx, domain.ClassInbound, "CMMIN0101240042")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	assert.EqualValues(t, 1, countRows(t, f, domain.ClassInbound))
}

func TestExportWritesWorkbook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.txns.Create(ctx, domain.ClassOutbound, validInput("Semen"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.txns.Export(ctx, domain.ClassOutbound, &buf))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("Transaksi Keluar")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ID Transaksi", rows[0][0])
	assert.Equal(t, []string{"CMMOUT0101240000", "2024-01-01", "B 1234 CD", "Budi", "Gudang Cikarang", "Semen", "PCS", "10"}, rows[1])
}
