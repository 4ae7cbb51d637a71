package discovery

// CandidateSet is an insertion-ordered set of place IDs found during one run.
// It only grows.
type CandidateSet struct {
	ids  []string
	seen map[string]struct{}
}

func NewCandidateSet() *CandidateSet {
	return &CandidateSet{seen: make(map[string]struct{})}
}

// Add inserts ids and returns how many were new. Empty IDs are ignored.
func (s *CandidateSet) Add(ids ...string) int {
	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.ids = append(s.ids, id)
		added++
	}
	return added
}

func (s *CandidateSet) Contains(id string) bool {
	_, ok := s.seen[id]
	return ok
}

func (s *CandidateSet) Len() int { return len(s.ids) }

// IDs returns a copy of the members in first-seen order.
func (s *CandidateSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}
