package session

import (
	"github.com/blevesearch/bleve/v2"
)

// Reader is a handle on an open index. Each open produces a distinct
// reader with its own generation number, so holders can tell a reopened
// index apart from the one they started with.
type Reader struct {
	idx        bleve.Index
	path       string
	generation uint64
}

// Index exposes the underlying engine index.
func (r *Reader) Index() bleve.Index { return r.idx }

// Path returns the path this reader was opened from.
func (r *Reader) Path() string { return r.path }

// Generation returns the monotonically increasing open counter. Two
// readers with different generations never share engine state.
func (r *Reader) Generation() uint64 { return r.generation }

// DocCount reports the number of documents in the index.
func (r *Reader) DocCount() (uint64, error) { return r.idx.DocCount() }

// Fields lists the indexed field names.
func (r *Reader) Fields() ([]string, error) { return r.idx.Fields() }

func (r *Reader) close() error { return r.idx.Close() }
