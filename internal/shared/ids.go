package shared

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// IDIssuer mints unique identifiers for newly created records.
type IDIssuer interface {
	NewID(prefix string) string
}

// SequenceIssuer issues monotonic per-prefix identifiers such as MV-000001.
type SequenceIssuer struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewSequenceIssuer constructs a SequenceIssuer.
func NewSequenceIssuer() *SequenceIssuer {
	return &SequenceIssuer{counters: make(map[string]int64)}
}

// NewID returns the next identifier for prefix.
func (s *SequenceIssuer) NewID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[prefix]++
	return fmt.Sprintf("%s-%06d", prefix, s.counters[prefix])
}

// UUIDIssuer issues prefix-qualified random UUIDs.
type UUIDIssuer struct{}

// NewID returns prefix followed by a v4 UUID.
func (UUIDIssuer) NewID(prefix string) string {
	id := strings.ToUpper(uuid.NewString())
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
