package main

// changeAction tags one entry of a connection change log.
type changeAction int

const (
	logMarker changeAction = iota
	logAddFull
	logAddSemi
	logRemoveFull
	logRemoveSemi
)

type changeEntry struct {
	action changeAction
	vc     VC
}

// ChangeLog records every mutation a connection set performs so a
// sequence of builds can be unwound move by move. Markers delimit the
// mutations of a single build.
type ChangeLog struct {
	entries []changeEntry
}

func (l *ChangeLog) Clear() {
	l.entries = l.entries[:0]
}

func (l *ChangeLog) Size() int {
	return len(l.entries)
}

func (l *ChangeLog) PushMarker() {
	l.entries = append(l.entries, changeEntry{action: logMarker})
}

func (l *ChangeLog) PushAdd(vc VC) {
	action := logAddFull
	if vc.Type == VCSemi {
		action = logAddSemi
	}
	l.entries = append(l.entries, changeEntry{action: action, vc: vc})
}

func (l *ChangeLog) PushRemove(vc VC) {
	action := logRemoveFull
	if vc.Type == VCSemi {
		action = logRemoveSemi
	}
	l.entries = append(l.entries, changeEntry{action: action, vc: vc})
}

// RevertToSize unwinds entries, markers included, until the log is back
// to the given size. Lets a caller revert several builds at once.
func (l *ChangeLog) RevertToSize(s *VCSet, size int) {
	for len(l.entries) > size {
		e := l.entries[len(l.entries)-1]
		l.entries = l.entries[:len(l.entries)-1]
		switch e.action {
		case logAddFull, logAddSemi:
			s.removeRaw(e.vc)
		case logRemoveFull, logRemoveSemi:
			s.addRaw(e.vc)
		}
	}
}

// RevertTo unwinds entries back to and including the newest marker,
// applying the inverse of each mutation to the set. Reverting an empty
// log is a no-op.
func (l *ChangeLog) RevertTo(s *VCSet) {
	for len(l.entries) > 0 {
		e := l.entries[len(l.entries)-1]
		l.entries = l.entries[:len(l.entries)-1]
		switch e.action {
		case logMarker:
			return
		case logAddFull, logAddSemi:
			s.removeRaw(e.vc)
		case logRemoveFull, logRemoveSemi:
			s.addRaw(e.vc)
		}
	}
}
