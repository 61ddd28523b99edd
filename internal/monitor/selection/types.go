package selection

// BulkState is the tri-state of the "select all" control.
type BulkState int

const (
	BulkAllSelected BulkState = iota
	BulkNoneSelected
	BulkIndeterminate
)

func (b BulkState) String() string {
	switch b {
	case BulkAllSelected:
		return "all"
	case BulkNoneSelected:
		return "none"
	default:
		return "indeterminate"
	}
}
