package listview

import (
	"strings"
	"sync"
	"time"
)

// SearchBox turns keystrokes into search terms. A term is committed once the
// input has been quiet for the debounce window, and only when it differs from
// the last committed term.
type SearchBox struct {
	d        *Debouncer
	onSearch func(term string)

	mu   sync.Mutex
	text string
	term string
}

func NewSearchBox(wait time.Duration, onSearch func(term string)) *SearchBox {
	return &SearchBox{d: NewDebouncer(wait), onSearch: onSearch}
}

// Type records the current input text.
func (s *SearchBox) Type(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
	s.d.Debounce(s.commit)
}

// Flush commits the current text without waiting.
func (s *SearchBox) Flush() {
	s.d.Immediate(s.commit)
}

// Close drops a pending commit.
func (s *SearchBox) Close() {
	s.d.Cancel()
}

// Term is the last committed term.
func (s *SearchBox) Term() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.term
}

func (s *SearchBox) commit() {
	s.mu.Lock()
	term := strings.TrimSpace(s.text)
	if term == s.term {
		s.mu.Unlock()
		return
	}
	s.term = term
	s.mu.Unlock()
	if s.onSearch != nil {
		s.onSearch(term)
	}
}
