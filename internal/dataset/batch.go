package dataset

// Kind is the per-column type tag decided once when the batch is built.
type Kind uint8

const (
	Unknown Kind = iota // only nulls seen
	Numeric
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Batch is a homogeneous table: a fixed schema plus row-major cells.
// Batches are never mutated after construction; Select and Drop copy.
type Batch struct {
	cols  []Column
	rows  [][]Value
	index map[string]int
}

// FromRecords builds a batch whose columns are the union of record keys in
// first-seen order. Absent fields become null.
func FromRecords(recs []Record) *Batch {
	b := &Batch{index: map[string]int{}}
	for _, r := range recs {
		for _, f := range r {
			if _, ok := b.index[f.Name]; !ok {
				b.index[f.Name] = len(b.cols)
				b.cols = append(b.cols, Column{Name: f.Name})
			}
		}
	}
	b.rows = make([][]Value, len(recs))
	for i, r := range recs {
		row := make([]Value, len(b.cols))
		for _, f := range r {
			row[b.index[f.Name]] = f.Value
		}
		b.rows[i] = row
	}
	for j := range b.cols {
		b.cols[j].Kind = inferKind(b.rows, j)
	}
	return b
}

func inferKind(rows [][]Value, j int) Kind {
	k := Unknown
	for _, row := range rows {
		switch {
		case row[j].IsText():
			return Categorical
		case row[j].IsNumber():
			k = Numeric
		}
	}
	return k
}

func (b *Batch) Len() int { return len(b.rows) }
func (b *Batch) Width() int { return len(b.cols) }
func (b *Batch) Columns() []Column { return append([]Column(nil), b.cols...) }
func (b *Batch) Row(i int) []Value { return b.rows[i] }

// Shape returns [rows, columns].
func (b *Batch) Shape() [2]int { return [2]int{len(b.rows), len(b.cols)} }

func (b *Batch) Has(name string) bool {
	_, ok := b.index[name]
	return ok
}

// ColumnIndex returns the position of name, or -1.
func (b *Batch) ColumnIndex(name string) int {
	if j, ok := b.index[name]; ok {
		return j
	}
	return -1
}

// Values returns a copy of column j.
func (b *Batch) Values(j int) []Value {
	out := make([]Value, len(b.rows))
	for i, row := range b.rows {
		out[i] = row[j]
	}
	return out
}

// Select returns a new batch with the given rows, in the given order.
// The schema is kept as is, even if a column ends up all null.
func (b *Batch) Select(idx []int) *Batch {
	out := &Batch{cols: b.Columns(), index: b.index, rows: make([][]Value, len(idx))}
	for i, r := range idx {
		out.rows[i] = b.rows[r]
	}
	return out
}

// Drop returns a new batch without column name; unchanged copy if absent.
func (b *Batch) Drop(name string) *Batch {
	j, ok := b.index[name]
	if !ok {
		return b.Select(seq(len(b.rows)))
	}
	out := &Batch{index: map[string]int{}, rows: make([][]Value, len(b.rows))}
	for k, c := range b.cols {
		if k == j {
			continue
		}
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, c)
	}
	for i, row := range b.rows {
		nr := make([]Value, 0, len(row)-1)
		nr = append(nr, row[:j]...)
		out.rows[i] = append(nr, row[j+1:]...)
	}
	return out
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
