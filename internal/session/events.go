package session

// Opened is published on the bus after an index is opened. Subscribers
// receive the live reader so they can start serving queries immediately.
type Opened struct {
	Path     string
	DirImpl  string
	ReadOnly bool
	Reader   *Reader
}

// Closed is published after the current index is closed. By the time a
// subscriber sees it the reader is no longer usable.
type Closed struct {
	Path string
}

// IndexChanged is published when the change watcher sees the on-disk
// index mutate underneath an open session. The session itself is left
// untouched; subscribers decide whether to reopen.
type IndexChanged struct {
	Path string
}
