package branch

// RevNum identifies a persisted revision in the backing repository.
type RevNum int64

// Invalid marks a RevNum that does not (yet) identify a persisted
// revision — used for the always-invalid working-branch revision.
const Invalid RevNum = -1

// RevBID names a branch at a specific revision: the predecessor a branch
// was derived from, or the target of a historical lookup.
type RevBID struct {
	Rev RevNum
	BID ID
}
