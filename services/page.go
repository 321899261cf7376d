package services

// Page selects a slice of an ordered result. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

const DefaultPageSize = 10

func NewPage(number int) Page {
	if number < 1 {
		number = 1
	}
	return Page{Number: number, Size: DefaultPageSize}
}

func (p Page) normalized() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	return p
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

func missingIDs[T any](want []uint, found []T, id func(T) uint) []uint {
	have := make(map[uint]struct{}, len(found))
	for _, f := range found {
		have[id(f)] = struct{}{}
	}
	var missing []uint
	for _, w := range want {
		if _, ok := have[w]; !ok {
			missing = append(missing, w)
		}
	}
	return missing
}
