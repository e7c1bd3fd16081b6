package feature

// Labels tracks a slice of features and their index locations that match up
// with the ordering of the coefficients assigned to each of these features.
type Labels struct {
	idx    map[string]int
	labels []Feature
}

func NewLabels(labels []Feature) *Labels {
	idx := make(map[string]int)
	for i := 0; i < len(labels); i++ {
		idx[labels[i].String()] = i
	}
	return &Labels{
		labels: labels,
		idx:    idx,
	}
}

func (f *Labels) Len() int {
	if f == nil {
		return 0
	}
	return len(f.labels)
}

func (f *Labels) Labels() []Feature {
	if f == nil {
		return nil
	}
	labels := make([]Feature, len(f.labels))
	copy(labels, f.labels)
	return labels
}

// Strings returns the string representation of every feature in order
func (f *Labels) Strings() []string {
	if f == nil {
		return nil
	}
	res := make([]string, 0, len(f.labels))
	for _, l := range f.labels {
		res = append(res, l.String())
	}
	return res
}

func (f *Labels) Index(label Feature) (int, bool) {
	if f == nil {
		return -1, false
	}
	if idx, exists := f.idx[label.String()]; exists {
		return idx, exists
	}
	return -1, false
}
