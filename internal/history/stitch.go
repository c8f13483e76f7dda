package history

import "fmt"

// Block is one time window's history before alignment. Absent is the number
// of adopters known from earlier blocks that do not take part in this one.
type Block struct {
	Key     string
	History History
	Absent  int
}

// Stitch concatenates block histories into one global series. Each block is
// densified locally, shifted so that its first tick follows the ticks already
// accumulated, and raised by its absent-adopter count. All blocks must share
// an axis.
func Stitch(blocks []Block) (History, error) {
	var out History
	accumulated := 0
	for i, b := range blocks {
		if i == 0 {
			out.Axis = b.History.Axis
		} else if b.History.Axis != out.Axis {
			return History{}, fmt.Errorf("block %q: axis %q after %q: %w", b.Key, b.History.Axis, out.Axis, ErrInconsistentTimeAxis)
		}
		dense, err := b.History.Dense()
		if err != nil {
			return History{}, fmt.Errorf("block %q: %w", b.Key, err)
		}
		if len(dense.Points) == 0 {
			continue
		}
		shift := accumulated - dense.Points[0].Time
		out.Points = append(out.Points, Offset(dense.Points, shift, b.Absent)...)
		accumulated += len(dense.Points)
	}
	return out, nil
}
