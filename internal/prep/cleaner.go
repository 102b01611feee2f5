package prep

import "github.com/viniciushammett/go-dataset-prep/internal/dataset"

type CleanReport struct {
	RowsBefore int `json:"rows_before"`
	RowsAfter  int `json:"rows_after"`
	Dropped    int `json:"dropped_rows"`
}

// Clean keeps only the rows without a null in any column. The input batch
// is left untouched and row order is preserved.
func Clean(b *dataset.Batch) (*dataset.Batch, CleanReport) {
	keep := make([]int, 0, b.Len())
	for i := 0; i < b.Len(); i++ {
		if complete(b.Row(i)) {
			keep = append(keep, i)
		}
	}
	out := b.Select(keep)
	return out, CleanReport{RowsBefore: b.Len(), RowsAfter: out.Len(), Dropped: b.Len() - out.Len()}
}

func complete(row []dataset.Value) bool {
	for _, v := range row {
		if v.IsNull() {
			return false
		}
	}
	return true
}
