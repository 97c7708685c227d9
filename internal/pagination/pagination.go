package pagination

import (
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/materialize"
)

var ErrInvalidPage = errors.New("invalid page")

// Page is a contiguous row id range of a dataset table: Lo < id <= Hi.
type Page struct {
	Number    int   `json:"page"`
	Size      int   `json:"pageSize"`
	Lo        int64 `json:"-"`
	Hi        int64 `json:"-"`
	PageCount int   `json:"pageCount"`
	RowCount  int64 `json:"rowCount"`
}

// IDRange returns the row id bounds of a zero-based page. Row ids start at 1,
// so page 0 holds ids 1..size. Pages whose bounds do not fit in an int64 get
// the empty range (MaxInt64, MaxInt64].
func IDRange(page, size int) (lo, hi int64) {
	if page < 0 || size <= 0 {
		return 0, 0
	}
	if int64(page) >= math.MaxInt64/int64(size) {
		return math.MaxInt64, math.MaxInt64
	}
	return int64(page) * int64(size), int64(page+1) * int64(size)
}

// PageCount is ceil(rows / size).
func PageCount(rows int64, size int) int {
	if rows <= 0 || size <= 0 {
		return 0
	}
	return int((rows + int64(size) - 1) / int64(size))
}

// New computes a page from an already known row count. Pages past the end
// are valid and simply contain no rows.
func New(page, size int, rows int64) (Page, error) {
	if size <= 0 {
		return Page{}, fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidPage, size)
	}
	if page < 0 {
		return Page{}, fmt.Errorf("%w: page number must not be negative, got %d", ErrInvalidPage, page)
	}
	lo, hi := IDRange(page, size)
	return Page{
		Number:    page,
		Size:      size,
		Lo:        lo,
		Hi:        hi,
		PageCount: PageCount(rows, size),
		RowCount:  rows,
	}, nil
}

// Paginate counts the rows of a dataset table and computes the page.
func Paginate(tx *gorm.DB, t *materialize.Table, page, size int) (Page, error) {
	var rows int64
	if err := tx.Raw("SELECT count(*) FROM " + t.QualifiedName()).Scan(&rows).Error; err != nil {
		return Page{}, fmt.Errorf("failed to count rows of %s: %w", t.QualifiedName(), err)
	}
	return New(page, size, rows)
}

// Rows selects the page of a dataset table with the given select list.
func (p Page) Rows(tx *gorm.DB, t *materialize.Table, selectList string) (*sql.Rows, error) {
	id := pq.QuoteIdentifier(materialize.IDColumn)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s > ? AND %s <= ? ORDER BY %s",
		selectList, t.QualifiedName(), id, id, id)
	rows, err := tx.Raw(query, p.Lo, p.Hi).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to read page %d of %s: %w", p.Number, t.QualifiedName(), err)
	}
	return rows, nil
}

// Head selects the first n rows of a dataset table in id order.
func Head(tx *gorm.DB, t *materialize.Table, selectList string, n int) (*sql.Rows, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT ?",
		selectList, t.QualifiedName(), pq.QuoteIdentifier(materialize.IDColumn))
	rows, err := tx.Raw(query, n).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", t.QualifiedName(), err)
	}
	return rows, nil
}
