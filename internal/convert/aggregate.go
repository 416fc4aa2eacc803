package convert

// Entry is one aggregated card line
type Entry struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Aggregate sums quantities per card name and remembers the order in which
// names were first seen.
type Aggregate struct {
	index   map[string]int
	entries []Entry
}

func NewAggregate() *Aggregate {
	return &Aggregate{index: make(map[string]int)}
}

// Add adds qty copies of name
func (a *Aggregate) Add(name string, qty int) {
	if i, ok := a.index[name]; ok {
		a.entries[i].Quantity += qty
		return
	}
	a.index[name] = len(a.entries)
	a.entries = append(a.entries, Entry{Name: name, Quantity: qty})
}

// Quantity returns the summed quantity for name
func (a *Aggregate) Quantity(name string) (int, bool) {
	i, ok := a.index[name]
	if !ok {
		return 0, false
	}
	return a.entries[i].Quantity, true
}

// Len is the number of distinct names
func (a *Aggregate) Len() int {
	return len(a.entries)
}

// Total is the sum of all quantities
func (a *Aggregate) Total() int {
	total := 0
	for _, e := range a.entries {
		total += e.Quantity
	}
	return total
}

// Entries returns a copy of the entries in insertion order
func (a *Aggregate) Entries() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}
