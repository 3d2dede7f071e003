package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"cmm-stock/internal/adapters/persistence/models"
	"cmm-stock/internal/adapters/persistence/repositories"
	"cmm-stock/internal/core/domain"
	"cmm-stock/internal/core/idgen"
	"cmm-stock/internal/pkg/clock"
	"cmm-stock/internal/pkg/metrics"
	"cmm-stock/internal/pkg/pagination"
	"cmm-stock/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// maxCreateAttempts bounds retries after a duplicate id
const maxCreateAttempts = 3

// pickupLayouts are the accepted tanggal_pickup formats
var pickupLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// Quantity accepts both 10 and "10" from clients
type Quantity int

func (q *Quantity) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("qty must be a whole number")
	}
	*q = Quantity(n)
	return nil
}

// TransactionInput is the body of create and update requests
type TransactionInput struct {
	PickupDate    string    `json:"tanggal_pickup" validate:"required"`
	PlateNumber   string    `json:"nopol" validate:"required"`
	Driver        string    `json:"driver" validate:"required"`
	Source        string    `json:"sumber_barang" validate:"required"`
	ItemName      string    `json:"nama_barang" validate:"required"`
	UnitOfMeasure string    `json:"uom" validate:"required"`
	Quantity      *Quantity `json:"qty" validate:"required,gt=0"`
}

func (in *TransactionInput) normalize() {
	in.PickupDate = strings.TrimSpace(in.PickupDate)
	in.PlateNumber = strings.TrimSpace(in.PlateNumber)
	in.Driver = strings.TrimSpace(in.Driver)
	in.Source = strings.TrimSpace(in.Source)
	in.ItemName = strings.TrimSpace(in.ItemName)
	in.UnitOfMeasure = strings.TrimSpace(in.UnitOfMeasure)
}

func (in *TransactionInput) toModel(loc *time.Location) (*models.Transaction, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	pickup, err := parsePickupDate(in.PickupDate, loc)
	if err != nil {
		return nil, err
	}

	return &models.Transaction{
		PickupDate:    pickup,
		PlateNumber:   in.PlateNumber,
		Driver:        in.Driver,
		Source:        in.Source,
		ItemName:      in.ItemName,
		UnitOfMeasure: in.UnitOfMeasure,
		Quantity:      int(*in.Quantity),
	}, nil
}

// parsePickupDate reads a date as a calendar day in loc, so the stored DATE
// does not move when the database session uses the same zone.
func parsePickupDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range pickupLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: tanggal_pickup %q is not a date", domain.ErrInvalidInput, s)
}

// TransactionService handles inbound and outbound transactions. The class
// argument of every method picks the table and the id prefix.
type TransactionService struct {
	repo     repositories.TransactionRepository
	cache    ListCache
	cacheTTL time.Duration
	clock    clock.Clock
	metrics  *metrics.Recorder
}

// NewTransactionService creates a new transaction service
func NewTransactionService(
	repo repositories.TransactionRepository,
	cache ListCache,
	cacheTTL time.Duration,
	clk clock.Clock,
	rec *metrics.Recorder,
) *TransactionService {
	return &TransactionService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		clock:    clk,
		metrics:  rec,
	}
}

func generationKey(class domain.TransactionClass) string {
	return "cmm:transactions:" + string(class) + ":gen"
}

func listCacheKey(class domain.TransactionClass, generation string) string {
	return "cmm:transactions:" + string(class) + ":" + generation
}

// List returns the transactions of class. Zero params return the whole
// table, served from the cache when possible.
func (s *TransactionService) List(ctx context.Context, class domain.TransactionClass, params *pagination.Params) ([]*models.Transaction, int64, error) {
	if params.IsZero() {
		return s.listAll(ctx, class)
	}

	filter := repositories.TransactionFilter{
		Search: params.Search,
		Sort:   params.Sort,
		Desc:   params.Desc,
	}
	if err := s.applyDateRange(&filter, params.From, params.To); err != nil {
		return nil, 0, err
	}
	if params.Paged {
		filter.Offset = params.Offset
		filter.Limit = params.Limit
	}

	rows, total, err := s.repo.List(ctx, class, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", class, err)
	}
	return rows, total, nil
}

// applyDateRange restricts filter to pickup dates between from and to, both
// inclusive YYYY-MM-DD days. Either bound may be empty.
func (s *TransactionService) applyDateRange(filter *repositories.TransactionFilter, from, to string) error {
	loc := s.clock.Now().Location()
	if from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, loc)
		if err != nil {
			return fmt.Errorf("%w: from %q is not a date", domain.ErrInvalidInput, from)
		}
		filter.From = t
	}
	if to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, loc)
		if err != nil {
			return fmt.Errorf("%w: to %q is not a date", domain.ErrInvalidInput, to)
		}
		filter.Before = t.AddDate(0, 0, 1)
	}
	if !filter.From.IsZero() && !filter.Before.IsZero() && !filter.From.Before(filter.Before) {
		return fmt.Errorf("%w: from is after to", domain.ErrInvalidInput)
	}
	return nil
}

// generation returns the current cache generation of class, starting a new
// one when none is stored. It must be read before querying the table so a
// snapshot is never filed under a generation a later write has replaced.
func (s *TransactionService) generation(ctx context.Context, class domain.TransactionClass) (string, error) {
	raw, ok, err := s.cache.Get(ctx, generationKey(class))
	if err != nil {
		return "", err
	}
	if ok {
		return string(raw), nil
	}
	gen := uuid.New().String()
	if err := s.cache.Set(ctx, generationKey(class), []byte(gen), 0); err != nil {
		return "", err
	}
	return gen, nil
}

func (s *TransactionService) listAll(ctx context.Context, class domain.TransactionClass) ([]*models.Transaction, int64, error) {
	gen, err := s.generation(ctx, class)
	if err != nil {
		log.Printf("⚠️ List cache read failed: %v", err)
		return s.queryAll(ctx, class)
	}
	key := listCacheKey(class, gen)

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		log.Printf("⚠️ List cache read failed: %v", err)
	} else if ok {
		var rows []*models.Transaction
		if err := json.Unmarshal(raw, &rows); err == nil {
			s.metrics.ListCacheLookups.WithLabelValues(string(class), "hit").Inc()
			return rows, int64(len(rows)), nil
		}
	}
	s.metrics.ListCacheLookups.WithLabelValues(string(class), "miss").Inc()

	rows, total, err := s.queryAll(ctx, class)
	if err != nil {
		return nil, 0, err
	}

	if raw, err := json.Marshal(rows); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
			log.Printf("⚠️ List cache write failed: %v", err)
		}
	}
	return rows, total, nil
}

func (s *TransactionService) queryAll(ctx context.Context, class domain.TransactionClass) ([]*models.Transaction, int64, error) {
	rows, total, err := s.repo.List(ctx, class, repositories.TransactionFilter{})
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", class, err)
	}
	if rows == nil {
		rows = []*models.Transaction{}
	}
	return rows, total, nil
}

// invalidate starts a new cache generation for class. Runs after the write
// has committed.
func (s *TransactionService) invalidate(ctx context.Context, class domain.TransactionClass) {
	old, ok, err := s.cache.Get(ctx, generationKey(class))
	if err != nil {
		log.Printf("⚠️ List cache invalidation failed: %v", err)
	}
	if err := s.cache.Set(ctx, generationKey(class), []byte(uuid.New().String()), 0); err != nil {
		log.Printf("⚠️ List cache invalidation failed: %v", err)
	}
	if ok {
		if err := s.cache.Delete(ctx, listCacheKey(class, string(old))); err != nil {
			log.Printf("⚠️ List cache invalidation failed: %v", err)
		}
	}
}

// Get returns one transaction by its human readable id
func (s *TransactionService) Get(ctx context.Context, class domain.TransactionClass, humanID string) (*models.Transaction, error) {
	rec, err := s.repo.GetByHumanID(ctx, class, humanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get %s %s: %w", class, humanID, err)
	}
	return rec, nil
}

// Create validates input, allocates the next id for today and stores the record
func (s *TransactionService) Create(ctx context.Context, class domain.TransactionClass, input *TransactionInput) (*models.Transaction, error) {
	rec, err := input.toModel(s.clock.Now().Location())
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		prefix := idgen.Prefix(class, s.clock.Now())

		err := s.repo.Create(ctx, class, prefix, rec)
		if err == nil {
			s.metrics.TransactionsCreated.WithLabelValues(string(class)).Inc()
			s.invalidate(ctx, class)
			log.Printf("✅ %s created: %s", class.Label(), rec.HumanID)
			return rec, nil
		}
		if !repositories.IsDuplicate(err) {
			if errors.Is(err, domain.ErrSequenceExhausted) || errors.Is(err, domain.ErrAllocationFailed) {
				return nil, err
			}
			return nil, fmt.Errorf("create %s: %w", class, err)
		}

		// someone wrote an id the sequence did not know about
		lastErr = err
		s.metrics.AllocationRetries.WithLabelValues(string(class)).Inc()
		log.Printf("⚠️ Duplicate %s id under %s (attempt %d), resyncing sequence", class, prefix, attempt)
		if err := s.repo.SyncSequence(ctx, class, prefix); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrAllocationFailed, err)
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrConflict, lastErr)
}

// Update replaces every field of a transaction except its ids
func (s *TransactionService) Update(ctx context.Context, class domain.TransactionClass, humanID string, input *TransactionInput) (*models.Transaction, error) {
	rec, err := input.toModel(s.clock.Now().Location())
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, class, humanID, rec)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("update %s %s: %w", class, humanID, err)
	}

	s.invalidate(ctx, class)
	return updated, nil
}

// Delete removes a transaction permanently
func (s *TransactionService) Delete(ctx context.Context, class domain.TransactionClass, humanID string) error {
	n, err := s.repo.Delete(ctx, class, humanID)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", class, humanID, err)
	}
	if n == 0 {
		return domain.ErrTransactionNotFound
	}

	s.invalidate(ctx, class)
	log.Printf("🗑️ %s deleted: %s", class.Label(), humanID)
	return nil
}

// PeekNextID returns the id the next creation of class would receive today.
// Concurrent creations may take it first.
func (s *TransactionService) PeekNextID(ctx context.Context, class domain.TransactionClass) (string, error) {
	prefix := idgen.Prefix(class, s.clock.Now())

	seq, err := s.repo.PeekNextSequence(ctx, class, prefix)
	if err != nil {
		if errors.Is(err, domain.ErrAllocationFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrAllocationFailed, err)
	}
	return idgen.Format(prefix, seq)
}

// exportHeader is the first row of exported sheets
var exportHeader = []interface{}{
	"ID Transaksi", "Tanggal Pickup", "No. Polisi", "Driver", "Sumber Barang", "Nama Barang", "UOM", "Qty",
}

// Export writes every transaction of class to w as an XLSX workbook
func (s *TransactionService) Export(ctx context.Context, class domain.TransactionClass, w io.Writer) error {
	rows, _, err := s.repo.List(ctx, class, repositories.TransactionFilter{Sort: "idtransaksivarchar"})
	if err != nil {
		return fmt.Errorf("export %s: %w", class, err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := class.Label()
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return fmt.Errorf("export %s: %w", class, err)
	}

	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("export %s header: %w", class, err)
	}

	for i, rec := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export %s: %w", class, err)
		}
		row := []interface{}{
			rec.HumanID,
			rec.PickupDate.Format("2006-01-02"),
			rec.PlateNumber,
			rec.Driver,
			rec.Source,
			rec.ItemName,
			rec.UnitOfMeasure,
			rec.Quantity,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export %s row %d: %w", class, i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export %s write: %w", class, err)
	}
	return nil
}
