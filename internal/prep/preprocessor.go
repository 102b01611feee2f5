package prep

import (
	"github.com/viniciushammett/go-dataset-prep/internal/dataset"
)

const (
	StepNumeric     = "num"
	StepCategorical = "cat"
)

// NumericColumn holds what the numeric sub-pipeline learned for one column:
// the median used to fill nulls and the robust scaler parameters. A column
// with no value at all in the fit batch fills with 0.
type NumericColumn struct {
	Name   string  `json:"name"`
	Fill   float64 `json:"fill"`
	Center float64 `json:"center"`
	Scale  float64 `json:"scale"`
}

// CategoricalColumn holds the vocabulary in first-seen order. Numbers found
// in a categorical column are categories under their decimal form.
type CategoricalColumn struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
	index      map[string]int
}

// Plan is the fitted preprocessing plan of one batch.
type Plan struct {
	Numeric     []NumericColumn     `json:"numeric"`
	Categorical []CategoricalColumn `json:"categorical"`
}

// Width is the number of output columns the plan produces.
func (p *Plan) Width() int {
	w := len(p.Numeric)
	for _, c := range p.Categorical {
		w += len(c.Categories)
	}
	return w
}

// Steps names the sub-pipelines that have at least one column.
func (p *Plan) Steps() []string {
	steps := []string{}
	if len(p.Numeric) > 0 {
		steps = append(steps, StepNumeric)
	}
	if len(p.Categorical) > 0 {
		steps = append(steps, StepCategorical)
	}
	return steps
}

func (p *Plan) featureNames() []string {
	names := make([]string, 0, p.Width())
	for _, c := range p.Numeric {
		names = append(names, c.Name)
	}
	for _, c := range p.Categorical {
		for _, cat := range c.Categories {
			names = append(names, c.Name+"="+cat)
		}
	}
	return names
}

// Preprocessor routes columns by kind: numeric columns are median-imputed
// then robust-scaled, categorical (and all-null) columns are one-hot encoded.
// Values never seen during Fit encode to all zeros.
type Preprocessor struct {
	plan *Plan
}

func NewPreprocessor() *Preprocessor { return &Preprocessor{} }

// Plan returns the fitted plan, nil before Fit.
func (p *Preprocessor) Plan() *Plan { return p.plan }

func (p *Preprocessor) Fit(b *dataset.Batch) error {
	if b.Len() == 0 {
		return dataset.Errorf(dataset.KindEmptyInput, "fit", "batch has no rows")
	}
	if b.Width() == 0 {
		return dataset.Errorf(dataset.KindEmptyInput, "fit", "batch has no feature columns")
	}
	plan := &Plan{}
	for j, c := range b.Columns() {
		if c.Kind == dataset.Numeric {
			plan.Numeric = append(plan.Numeric, fitNumeric(c.Name, b.Values(j)))
		} else {
			plan.Categorical = append(plan.Categorical, fitCategorical(c.Name, b.Values(j)))
		}
	}
	p.plan = plan
	return nil
}

func fitNumeric(name string, vals []dataset.Value) NumericColumn {
	var present []float64
	for _, v := range vals {
		if f, ok := v.Float(); ok {
			present = append(present, f)
		}
	}
	fill := 0.0
	if len(present) > 0 {
		fill = median(present)
	}

	imputed := make([]float64, len(vals))
	for i, v := range vals {
		if f, ok := v.Float(); ok {
			imputed[i] = f
		} else {
			imputed[i] = fill
		}
	}
	s := sortedCopy(imputed)
	center := quantile(0.5, s)
	scale := quantile(0.75, s) - quantile(0.25, s)
	if scale == 0 {
		scale = 1
	}
	return NumericColumn{Name: name, Fill: fill, Center: center, Scale: scale}
}

func fitCategorical(name string, vals []dataset.Value) CategoricalColumn {
	c := CategoricalColumn{Name: name, Categories: []string{}, index: map[string]int{}}
	for _, v := range vals {
		if v.IsNull() {
			continue
		}
		s := v.String()
		if _, seen := c.index[s]; !seen {
			c.index[s] = len(c.Categories)
			c.Categories = append(c.Categories, s)
		}
	}
	return c
}

// Transform applies the fitted plan. Columns absent from b are treated as
// null; extra columns are ignored.
func (p *Preprocessor) Transform(b *dataset.Batch) (*Matrix, error) {
	if p.plan == nil {
		return nil, dataset.Errorf(dataset.KindNotFitted, "transform", "preprocessor has not been fitted")
	}
	plan := p.plan
	m := newMatrix(b.Len(), plan.Width(), plan.featureNames())

	for k, nc := range plan.Numeric {
		j := b.ColumnIndex(nc.Name)
		for i := 0; i < b.Len(); i++ {
			x := nc.Fill
			if j >= 0 {
				v := b.Row(i)[j]
				if v.IsText() {
					return nil, dataset.Errorf(dataset.KindMalformedInput, "transform",
						"column %q is numeric but row %d holds text %q", nc.Name, i, v.String())
				}
				if f, ok := v.Float(); ok {
					x = f
				}
			}
			m.set(i, k, (x-nc.Center)/nc.Scale)
		}
	}

	offset := len(plan.Numeric)
	for _, cc := range plan.Categorical {
		j := b.ColumnIndex(cc.Name)
		if j >= 0 {
			for i := 0; i < b.Len(); i++ {
				v := b.Row(i)[j]
				if v.IsNull() {
					continue
				}
				if pos, known := cc.index[v.String()]; known {
					m.set(i, offset+pos, 1)
				}
			}
		}
		offset += len(cc.Categories)
	}
	return m, nil
}

func (p *Preprocessor) FitTransform(b *dataset.Batch) (*Matrix, error) {
	if err := p.Fit(b); err != nil {
		return nil, err
	}
	return p.Transform(b)
}
