package models

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Human-readable document number prefixes. Cutting records, manufacturing
// orders, fabrics and QR products use sequential numbers; stock transactions
// use the timestamp+random strategy below.
const (
	DocumentPrefixCutting       = "CUT"
	DocumentPrefixManufacturing = "MFG"
	DocumentPrefixFabric        = "FAB"
	DocumentPrefixProduct       = "PRD"
	DocumentPrefixTransaction   = "TXN"
)

var documentNumberPattern = regexp.MustCompile(`^([A-Z]+)(\d+)$`)

// ParseDocumentNumber extracts the numeric suffix of an id like "CUT0042".
// Returns false when the id does not match ^PREFIX\d+$.
func ParseDocumentNumber(prefix string, id string) (int, bool) {
	m := documentNumberPattern.FindStringSubmatch(id)
	if m == nil || m[1] != prefix {
		return 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatDocumentNumber zero-pads to at least 4 digits, growing beyond 4 once
// the sequence exceeds 9999.
func FormatDocumentNumber(prefix string, n int) string {
	return fmt.Sprintf("%s%04d", prefix, n)
}

// NextDocumentNumberFrom scans existing ids and returns max numeric suffix + 1.
func NextDocumentNumberFrom(prefix string, ids []string) string {
	max := 0
	for _, id := range ids {
		if n, ok := ParseDocumentNumber(prefix, id); ok && n > max {
			max = n
		}
	}
	return FormatDocumentNumber(prefix, max+1)
}

// nextDocumentNumber allocates the next sequential id for a table column.
// Callers must hold the docnum lock (utils.ObtainStockLock) and run inside the
// same transaction that inserts the row; the unique index on the column turns
// any residual race into a duplicate-key error.
func nextDocumentNumber(tx *gorm.DB, tableName string, columnName string, prefix string) (string, error) {
	var ids []string
	err := tx.Table(tableName).
		Where(columnName+" LIKE ?", prefix+"%").
		Pluck(columnName, &ids).Error
	if err != nil {
		return "", err
	}
	return NextDocumentNumberFrom(prefix, ids), nil
}

// GenerateTransactionId builds a collision-resistant ledger id from a UTC
// timestamp plus a random 4-digit suffix.
func GenerateTransactionId(now time.Time, suffix int) string {
	return fmt.Sprintf("%s%s%04d", DocumentPrefixTransaction, now.UTC().Format("20060102150405"), suffix)
}

// newStockTransactionId retries on collision up to 10 attempts, then falls
// back to a timestamp-only id.
func newStockTransactionId(tx *gorm.DB) (string, error) {
	now := time.Now()
	for attempt := 0; attempt < 10; attempt++ {
		candidate := GenerateTransactionId(now, rand.Intn(10000))
		var count int64
		if err := tx.Model(&StockTransaction{}).
			Where("transaction_id = ?", candidate).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return DocumentPrefixTransaction + strconv.FormatInt(now.UTC().UnixNano(), 10), nil
}

// isDuplicateEntry reports whether a generated id lost a race despite the
// pre-insert scan (MySQL error 1062 on the unique index).
func isDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "Duplicate entry") || isDuplicateKeyErr(err)
}
