package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viniciushammett/go-dataset-prep/internal/dataset"
	"github.com/viniciushammett/go-dataset-prep/internal/prep"
)

func TestWriteCSV(t *testing.T) {
	recs, err := dataset.DecodeRecords([]byte(`[
		{"n": 1, "proto": "tcp"},
		{"n": 2, "proto": "udp"},
		{"n": 3, "proto": "tcp"}
	]`))
	require.NoError(t, err)
	m, err := prep.NewPreprocessor().FitTransform(dataset.FromRecords(recs))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, m))
	want := "n,proto=tcp,proto=udp\n" +
		"-1,1,0\n" +
		"0,0,1\n" +
		"1,1,0\n"
	assert.Equal(t, want, buf.String())
}
