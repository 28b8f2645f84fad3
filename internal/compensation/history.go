package compensation

import "slices"

// SortedIndices is the permutation that orders the ledger by fromDate,
// newest first. Ties keep insertion order.
func SortedIndices(ledger []LedgerEntry) []int {
	idx := make([]int, len(ledger))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return ledger[b].FromDate.Compare(ledger[a].FromDate)
	})
	return idx
}

// Sorted returns the ledger in display order.
func Sorted(ledger []LedgerEntry) []LedgerEntry {
	out := make([]LedgerEntry, len(ledger))
	for i, idx := range SortedIndices(ledger) {
		out[i] = ledger[idx]
	}
	return out
}

type Page[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	TotalPages int
}

// TotalPages is never less than one, so an empty ledger still has a page.
func TotalPages(n, pageSize int) int {
	if pageSize < 1 {
		pageSize = 1
	}
	return max(1, (n+pageSize-1)/pageSize)
}

func ClampPage(page, totalPages int) int {
	return min(max(page, 1), max(totalPages, 1))
}

// PositionOf converts a row on a page into a sorted-view position.
func PositionOf(page, pageSize, row int) int {
	return (page-1)*pageSize + row
}

func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize < 1 {
		pageSize = 1
	}
	total := TotalPages(len(items), pageSize)
	page = ClampPage(page, total)

	start := min(PositionOf(page, pageSize, 0), len(items))
	end := min(start+pageSize, len(items))

	return Page[T]{
		Items:      items[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalPages: total,
	}
}

// Row is a ledger entry as displayed, with its sorted-view position.
type Row struct {
	Position int `json:"position"`
	LedgerEntry
}

type View struct {
	Rows            []Row `json:"rows"`
	Page            int   `json:"page"`
	PageSize        int   `json:"pageSize"`
	TotalPages      int   `json:"totalPages"`
	CurrentPageRows []Row `json:"currentPageRows"`
}

func BuildView(ledger []LedgerEntry, page, pageSize int) View {
	sorted := Sorted(ledger)
	rows := make([]Row, len(sorted))
	for i, e := range sorted {
		rows[i] = Row{Position: i, LedgerEntry: e.Recompute()}
	}

	p := Paginate(rows, page, pageSize)
	return View{
		Rows:            rows,
		Page:            p.Page,
		PageSize:        p.PageSize,
		TotalPages:      p.TotalPages,
		CurrentPageRows: p.Items,
	}
}
