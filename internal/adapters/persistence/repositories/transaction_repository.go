package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cmm-stock/internal/adapters/persistence/models"
	"cmm-stock/internal/core/domain"
	"cmm-stock/internal/core/idgen"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const humanIDColumn = "idtransaksivarchar"

// sortColumns whitelists the columns a listing may be ordered by
var sortColumns = map[string]string{
	"idtransaksi":        "idtransaksi",
	"idtransaksivarchar": "idtransaksivarchar",
	"tanggal_pickup":     "tanggal_pickup",
	"nopol":              "nopol",
	"driver":             "driver",
	"sumber_barang":      "sumber_barang",
	"nama_barang":        "nama_barang",
	"uom":                "uom",
	"qty":                "qty",
}

// searchColumns are matched by TransactionFilter.Search
var searchColumns = []string{"idtransaksivarchar", "nopol", "driver", "sumber_barang", "nama_barang", "uom"}

// transactionRepository implements TransactionRepository interface
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) table(ctx context.Context, class domain.TransactionClass) *gorm.DB {
	return r.db.WithContext(ctx).Table(class.Table())
}

// List lists transactions of one class
func (r *transactionRepository) List(ctx context.Context, class domain.TransactionClass, f TransactionFilter) ([]*models.Transaction, int64, error) {
	q := r.table(ctx, class)

	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		conds := make([]string, len(searchColumns))
		args := make([]interface{}, len(searchColumns))
		for i, col := range searchColumns {
			conds[i] = "LOWER(" + col + ") LIKE ?"
			args[i] = like
		}
		q = q.Where(strings.Join(conds, " OR "), args...)
	}
	if !f.From.IsZero() {
		q = q.Where("tanggal_pickup >= ?", f.From)
	}
	if !f.Before.IsZero() {
		q = q.Where("tanggal_pickup < ?", f.Before)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if col, ok := sortColumns[f.Sort]; ok {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: f.Desc})
	}
	q = q.Order("idtransaksi ASC")

	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}

	var rows []*models.Transaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// GetByHumanID gets a transaction by its human readable id
func (r *transactionRepository) GetByHumanID(ctx context.Context, class domain.TransactionClass, humanID string) (*models.Transaction, error) {
	var rec models.Transaction
	err := r.table(ctx, class).Where(humanIDColumn+" = ?", humanID).Take(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create allocates an id and inserts rec atomically
func (r *transactionRepository) Create(ctx context.Context, class domain.TransactionClass, prefix string, rec *models.Transaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := allocate(tx, class, prefix)
		if err != nil {
			return err
		}
		humanID, err := idgen.Format(prefix, seq)
		if err != nil {
			return err
		}

		rec.ID = 0
		rec.HumanID = humanID
		return tx.Table(class.Table()).Create(rec).Error
	})
}

// PeekNextSequence reads the next sequence without taking it
func (r *transactionRepository) PeekNextSequence(ctx context.Context, class domain.TransactionClass, prefix string) (int, error) {
	var seq models.TransactionSequence
	err := r.db.WithContext(ctx).Where("prefix = ?", prefix).Take(&seq).Error
	if err == nil {
		return seq.NextSeq, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	last, err := lastHumanID(r.db.WithContext(ctx), class, prefix)
	if err != nil {
		return 0, err
	}
	return idgen.NextAfter(prefix, last)
}

// SyncSequence repairs a sequence that fell behind rows inserted around it
func (r *transactionRepository) SyncSequence(ctx context.Context, class domain.TransactionClass, prefix string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureSequence(tx, class, prefix); err != nil {
			return err
		}
		last, err := lastHumanID(tx, class, prefix)
		if err != nil {
			return err
		}
		next, err := idgen.NextAfter(prefix, last)
		if err != nil {
			return err
		}
		return tx.Model(&models.TransactionSequence{}).
			Where("prefix = ? AND next_seq < ?", prefix, next).
			Updates(map[string]interface{}{"next_seq": next}).Error
	})
}

// Update replaces every field except the ids
func (r *transactionRepository) Update(ctx context.Context, class domain.TransactionClass, humanID string, rec *models.Transaction) (*models.Transaction, error) {
	var updated models.Transaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(class.Table()).Where(humanIDColumn+" = ?", humanID).Take(&updated).Error; err != nil {
			return err
		}

		err := tx.Table(class.Table()).
			Where(humanIDColumn+" = ?", humanID).
			Updates(map[string]interface{}{
				"tanggal_pickup": rec.PickupDate,
				"nopol":          rec.PlateNumber,
				"driver":         rec.Driver,
				"sumber_barang":  rec.Source,
				"nama_barang":    rec.ItemName,
				"uom":            rec.UnitOfMeasure,
				"qty":            rec.Quantity,
			}).Error
		if err != nil {
			return err
		}

		return tx.Table(class.Table()).Where(humanIDColumn+" = ?", humanID).Take(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete hard deletes a transaction by its human readable id
func (r *transactionRepository) Delete(ctx context.Context, class domain.TransactionClass, humanID string) (int64, error) {
	res := r.table(ctx, class).Where(humanIDColumn+" = ?", humanID).Delete(&models.Transaction{})
	return res.RowsAffected, res.Error
}

// allocate takes the next sequence for prefix. It must run inside a database
// transaction: the UPDATE locks the sequence row until commit, so concurrent
// creations under the same prefix queue up behind each other.
func allocate(tx *gorm.DB, class domain.TransactionClass, prefix string) (int, error) {
	if err := ensureSequence(tx, class, prefix); err != nil {
		return 0, err
	}

	res := tx.Model(&models.TransactionSequence{}).
		Where("prefix = ?", prefix).
		Updates(map[string]interface{}{"next_seq": gorm.Expr("next_seq + ?", 1)})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrAllocationFailed, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: sequence %s vanished", domain.ErrAllocationFailed, prefix)
	}

	var seq models.TransactionSequence
	if err := tx.Where("prefix = ?", prefix).Take(&seq).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrAllocationFailed, err)
	}
	return seq.NextSeq - 1, nil
}

// ensureSequence creates the sequence row for prefix on first use. The row is
// seeded from the greatest id already stored, so rows written before the
// sequence table existed keep their numbers.
func ensureSequence(tx *gorm.DB, class domain.TransactionClass, prefix string) error {
	var count int64
	if err := tx.Model(&models.TransactionSequence{}).Where("prefix = ?", prefix).Count(&count).Error; err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAllocationFailed, err)
	}
	if count > 0 {
		return nil
	}

	last, err := lastHumanID(tx, class, prefix)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAllocationFailed, err)
	}
	next, err := idgen.NextAfter(prefix, last)
	if err != nil {
		return err
	}

	// a concurrent creator may have inserted the row in the meantime
	err = tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.TransactionSequence{Prefix: prefix, NextSeq: next}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAllocationFailed, err)
	}
	return nil
}

// lastHumanID returns the greatest id under prefix by string order, or "".
func lastHumanID(db *gorm.DB, class domain.TransactionClass, prefix string) (string, error) {
	var ids []string
	err := db.Table(class.Table()).
		Where(humanIDColumn+" LIKE ?", prefix+"%").
		Order(humanIDColumn+" DESC").
		Limit(1).
		Pluck(humanIDColumn, &ids).Error
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}
