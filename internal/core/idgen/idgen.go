// Package idgen holds the rules for human readable transaction ids.
//
// An id is CMM + class code (IN/OUT) + DDMMYY + a 4-digit zero-padded daily
// sequence, e.g. CMMIN0101240000. Prefix and suffix widths are fixed, so
// ordering ids as strings within one prefix is the same as ordering them by
// sequence number.
package idgen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cmm-stock/internal/core/domain"
)

const (
	// SuffixWidth is the number of digits in the daily sequence
	SuffixWidth = 4
	// MaxSequence is the last sequence number a prefix can hand out
	MaxSequence = 9999

	companyCode = "CMM"
	dateLayout  = "020106" // DDMMYY
)

// Prefix returns the id prefix for class on the calendar day of t.
// The caller decides the time zone by passing t in the right location.
func Prefix(class domain.TransactionClass, t time.Time) string {
	return companyCode + class.Code() + t.Format(dateLayout)
}

// Format joins prefix and seq into a full id
func Format(prefix string, seq int) (string, error) {
	if seq < 0 {
		return "", fmt.Errorf("%w: negative sequence %d", domain.ErrAllocationFailed, seq)
	}
	if seq > MaxSequence {
		return "", fmt.Errorf("%w: prefix %s", domain.ErrSequenceExhausted, prefix)
	}
	return fmt.Sprintf("%s%0*d", prefix, SuffixWidth, seq), nil
}

// Sequence extracts the numeric suffix of an id
func Sequence(id string) (int, error) {
	if len(id) < SuffixWidth {
		return 0, fmt.Errorf("%w: id %q too short", domain.ErrAllocationFailed, id)
	}
	n, err := strconv.Atoi(id[len(id)-SuffixWidth:])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: id %q has no numeric suffix", domain.ErrAllocationFailed, id)
	}
	return n, nil
}

// NextAfter returns the sequence that follows lastID within prefix.
// An empty lastID means nothing has been allocated yet.
func NextAfter(prefix, lastID string) (int, error) {
	if lastID == "" {
		return 0, nil
	}
	if !strings.HasPrefix(lastID, prefix) {
		return 0, fmt.Errorf("%w: id %q outside prefix %s", domain.ErrAllocationFailed, lastID, prefix)
	}
	n, err := Sequence(lastID)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}
