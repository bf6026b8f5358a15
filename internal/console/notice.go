package console

import "time"

// NoticeKind tells success and error notifications apart.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient message about the outcome of a mutation.
type Notice struct {
	Kind    NoticeKind
	Message string
	Expires time.Time
}

// notices holds at most one notification; a new one replaces the current.
type notices struct {
	ttl     time.Duration
	current *Notice
}

func (n *notices) push(kind NoticeKind, msg string, now time.Time) {
	n.current = &Notice{Kind: kind, Message: msg, Expires: now.Add(n.ttl)}
}

// active returns the current notice, dropping it once expired.
func (n *notices) active(now time.Time) *Notice {
	if n.current == nil {
		return nil
	}
	if !now.Before(n.current.Expires) {
		n.current = nil
		return nil
	}
	cp := *n.current
	return &cp
}

func (n *notices) dismiss() { n.current = nil }

func message(kind Kind, mode Mode, ok bool) string {
	switch {
	case kind == KindJournal && mode == ModeCreate && ok:
		return "Journal uploaded successfully"
	case kind == KindJournal && mode == ModeCreate:
		return "Failed to upload journal"
	case kind == KindJournal && mode == ModeEdit && ok:
		return "Journal updated successfully"
	case kind == KindJournal && mode == ModeEdit:
		return "Failed to update journal"
	case kind == KindAnnouncement && mode == ModeCreate && ok:
		return "Announcement created successfully"
	case kind == KindAnnouncement && mode == ModeCreate:
		return "Failed to create announcement"
	case kind == KindAnnouncement && mode == ModeEdit && ok:
		return "Announcement updated successfully"
	case kind == KindAnnouncement && mode == ModeEdit:
		return "Failed to update announcement"
	}
	return "An error occurred"
}

func deleteMessage(kind Kind, ok bool) string {
	switch {
	case kind == KindJournal && ok:
		return "Journal deleted successfully"
	case kind == KindJournal:
		return "Failed to delete journal"
	case ok:
		return "Announcement deleted successfully"
	default:
		return "Failed to delete announcement"
	}
}

func fetchMessage(kind Kind) string {
	if kind == KindJournal {
		return "Failed to fetch journals"
	}
	return "Failed to fetch announcements"
}
