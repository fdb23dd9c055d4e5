package b2b

// Tab is one of the six mutually exclusive list views of business returns.
type Tab string

const (
	TabScheduled Tab = "scheduled"
	TabWaiting   Tab = "waiting"
	TabReceiving Tab = "receiving"
	TabConfirmed Tab = "confirmed"
	TabPutaway   Tab = "putaway"
	TabCompleted Tab = "completed"
)

// Tabs lists the views in display order.
var Tabs = []Tab{TabScheduled, TabWaiting, TabReceiving, TabConfirmed, TabPutaway, TabCompleted}

// TabOf maps a status to its view. Canceled returns belong to no view.
func TabOf(s Status) (Tab, bool) {
	switch s {
	case StatusScheduled:
		return TabScheduled, true
	case StatusWaiting:
		return TabWaiting, true
	case StatusReceiving:
		return TabReceiving, true
	case StatusConfirmed:
		return TabConfirmed, true
	case StatusPutawayScheduled, StatusPutaway:
		return TabPutaway, true
	case StatusPutawayDone:
		return TabCompleted, true
	default:
		return "", false
	}
}

// TabCounts returns the badge count of every view.
func (s *Service) TabCounts() map[Tab]int {
	counts := make(map[Tab]int, len(Tabs))
	for _, tab := range Tabs {
		counts[tab] = 0
	}
	for status, n := range s.Counts() {
		if tab, ok := TabOf(status); ok {
			counts[tab] += n
		}
	}
	return counts
}

// ListTab returns the orders shown in tab.
func (s *Service) ListTab(tab Tab) []Order {
	all := s.List(Filter{})
	out := make([]Order, 0, len(all))
	for _, o := range all {
		if t, ok := TabOf(o.Status); ok && t == tab {
			out = append(out, o)
		}
	}
	return out
}
