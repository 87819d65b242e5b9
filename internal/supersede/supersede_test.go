package supersede

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIssue_MakesEarlierTokensStale(t *testing.T) {
	var s Slot
	first := s.Issue()
	assert.True(t, first.Current())

	second := s.Issue()
	assert.False(t, first.Current())
	assert.True(t, second.Current())
	assert.Greater(t, second.Generation(), first.Generation())
}

func TestPeek_DoesNotAdvance(t *testing.T) {
	var s Slot
	tok := s.Issue()
	peeked := s.Peek()
	assert.True(t, tok.Current())
	assert.True(t, peeked.Current())
	assert.Equal(t, tok.Generation(), peeked.Generation())
}

func TestInvalidate(t *testing.T) {
	var s Slot
	tok := s.Issue()
	s.Invalidate()
	assert.False(t, tok.Current())
}

func TestZeroToken_NeverCurrent(t *testing.T) {
	var tok Token
	assert.False(t, tok.Current())
}

func TestIssue_Concurrent(t *testing.T) {
	var s Slot
	var wg sync.WaitGroup
	tokens := make([]Token, 50)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i] = s.Issue()
		}(i)
	}
	wg.Wait()

	current := 0
	for _, tok := range tokens {
		if tok.Current() {
			current++
		}
	}
	assert.Equal(t, 1, current)
}
