package lcs

// Op is the operation of a SequenceEdit.
type Op uint8

// Sequence edit operations.
const (
	OpMatch Op = iota
	OpDelete
	OpInsert
)

func (op Op) String() string {
	switch op {
	case OpMatch:
		return "match"
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	default:
		return "unknown"
	}
}

// SequenceEdit is one step of the script that turns the old sequence into the
// new one. OldIndex is -1 for inserts and NewIndex is -1 for deletes.
type SequenceEdit struct {
	Op       Op  `json:"op"`
	OldIndex int `json:"old_index"`
	NewIndex int `json:"new_index"`
}

// Edits expands an alignment of sequences of lengths n and m into a full edit
// script in sequence order. Between two aligned pairs, deletes precede inserts.
func Edits(al Alignment, n, m int) []SequenceEdit {
	out := make([]SequenceEdit, 0, n+m-al.Len())
	i, j := 0, 0

	flush := func(toA, toB int) {
		for ; i < toA; i++ {
			out = append(out, SequenceEdit{Op: OpDelete, OldIndex: i, NewIndex: -1})
		}

		for ; j < toB; j++ {
			out = append(out, SequenceEdit{Op: OpInsert, OldIndex: -1, NewIndex: j})
		}
	}

	for _, pr := range al.Pairs {
		flush(pr.A, pr.B)

		out = append(out, SequenceEdit{Op: OpMatch, OldIndex: pr.A, NewIndex: pr.B})
		i, j = pr.A+1, pr.B+1
	}

	flush(n, m)

	return out
}
