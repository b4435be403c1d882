package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strayline/corral/internal/proto"
)

// Exchange is one completed user turn: the input and the final answer.
type Exchange struct {
	ID     string
	Input  string
	Answer string
	At     time.Time
}

// History is the bounded in-memory conversation memory. Oldest exchanges are
// evicted beyond the window.
type History struct {
	mu      sync.Mutex
	window  int
	entries []Exchange
}

func NewHistory(window int) *History {
	if window < 1 {
		window = 1
	}
	return &History{window: window}
}

// Record appends an exchange, assigning it an ID, and returns it.
func (h *History) Record(input, answer string) Exchange {
	e := Exchange{ID: uuid.NewString(), Input: input, Answer: answer, At: time.Now()}
	h.mu.Lock()
	h.entries = append(h.entries, e)
	if len(h.entries) > h.window {
		h.entries = h.entries[len(h.entries)-h.window:]
	}
	h.mu.Unlock()
	return e
}

// Messages renders the remembered exchanges as transcript context.
func (h *History) Messages() []proto.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]proto.Message, 0, 2*len(h.entries))
	for _, e := range h.entries {
		out = append(out,
			proto.Message{Role: proto.RoleUser, Content: e.Input},
			proto.Message{Role: proto.RoleAssistant, Content: e.Answer},
		)
	}
	return out
}

// Len reports the number of remembered exchanges.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
