package compensation_test

import (
	"testing"

	"go-hris-ledger/internal/compensation"

	"github.com/stretchr/testify/assert"
)

func TestSorted(t *testing.T) {
	ledger := []compensation.LedgerEntry{
		entry("2023-01-01", "2024-01-01", "1", "0"),
		entry("2025-01-01", "", "3", "0"),
		entry("2024-01-01", "2024-01-01", "2", "0"),
		entry("2024-01-01", "2025-01-01", "4", "0"),
	}

	sorted := compensation.Sorted(ledger)

	assert.Equal(t, []int{1, 2, 3, 0}, compensation.SortedIndices(ledger))
	assert.True(t, sorted[0].Basic.Equal(dec("3")))
	// equal fromDate keeps insertion order
	assert.True(t, sorted[1].Basic.Equal(dec("2")))
	assert.True(t, sorted[2].Basic.Equal(dec("4")))
	assert.True(t, ledger[0].Basic.Equal(dec("1")))
}

func TestPaginate(t *testing.T) {
	t.Run("total pages", func(t *testing.T) {
		for n := 0; n <= 25; n++ {
			for size := 1; size <= 7; size++ {
				want := (n + size - 1) / size
				if want < 1 {
					want = 1
				}
				items := make([]int, n)
				assert.Equal(t, want, compensation.Paginate(items, 1, size).TotalPages, "n=%d size=%d", n, size)
			}
		}
	})

	t.Run("page is clamped", func(t *testing.T) {
		items := []int{1, 2, 3, 4, 5}

		last := compensation.Paginate(items, 99, 2)
		first := compensation.Paginate(items, -1, 2)

		assert.Equal(t, 3, last.Page)
		assert.Equal(t, []int{5}, last.Items)
		assert.Equal(t, 1, first.Page)
		assert.Equal(t, []int{1, 2}, first.Items)
	})

	t.Run("empty input has one empty page", func(t *testing.T) {
		p := compensation.Paginate([]int{}, 1, 10)

		assert.Equal(t, 1, p.TotalPages)
		assert.Empty(t, p.Items)
	})
}

func TestBuildView(t *testing.T) {
	ledger := scenarioLedger(t)

	view := compensation.BuildView(ledger, 2, 2)

	assert.Len(t, view.Rows, 3)
	assert.Equal(t, 2, view.TotalPages)
	assert.Equal(t, 2, view.Page)
	assert.Len(t, view.CurrentPageRows, 1)
	assert.Equal(t, 2, view.CurrentPageRows[0].Position)
	assert.Equal(t, date("2023-03-01"), view.CurrentPageRows[0].FromDate)

	pos := compensation.PositionOf(view.Page, view.PageSize, 0)
	next, err := compensation.Delete(ledger, pos)
	assert.NoError(t, err)
	assert.Equal(t, ledger[1:], next)
}
