package okx

import (
	"errors"
	"fmt"
)

// ErrOutOfSequence means an incremental update does not continue the last
// applied one. The book can only be recovered from a fresh snapshot.
var ErrOutOfSequence = errors.New("depth update is out of sequence")

// SequenceValidator follows seqId/prevSeqId continuity on the books channel.
// Frames without sequence numbers are not checked.
type SequenceValidator struct {
	lastSeqID int64
	known     bool
}

func (v *SequenceValidator) Validate(action string, data DepthData) error {
	if action != ActionUpdate || data.SeqID == 0 {
		return nil
	}
	if !v.known {
		return fmt.Errorf("%w: update seqId=%d before any snapshot", ErrOutOfSequence, data.SeqID)
	}

	// the venue resets sequences during maintenance, signalled by seqId < prevSeqId
	if data.SeqID < data.PrevSeqID {
		return nil
	}
	if data.PrevSeqID != v.lastSeqID {
		return fmt.Errorf("%w: prevSeqId=%d, last applied seqId=%d", ErrOutOfSequence, data.PrevSeqID, v.lastSeqID)
	}
	return nil
}

// Applied records data as the latest update merged into the book.
func (v *SequenceValidator) Applied(data DepthData) {
	if data.SeqID == 0 {
		return
	}
	v.lastSeqID = data.SeqID
	v.known = true
}

func (v *SequenceValidator) Reset() {
	v.lastSeqID = 0
	v.known = false
}
