package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/viniciushammett/go-dataset-prep/internal/prep"
)

// WriteCSV writes the feature names as header followed by every row of m.
func WriteCSV(w io.Writer, m *prep.Matrix) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(m.FeatureNames()); err != nil {
		return err
	}
	rows, cols := m.Dims()
	rec := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j, v := range m.Row(i) {
			rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
