package history

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wagate/internal/llm"
)

func TestAppendAndGet(t *testing.T) {
	s := NewStore(20)

	s.Append("u1", llm.UserMessage("hello"), llm.AssistantMessage("hi there"))

	turns := s.Get("u1")
	require.Len(t, turns, 2)
	assert.Equal(t, llm.RoleUser, turns[0].Role)
	assert.Equal(t, "hello", turns[0].Content)
	assert.Equal(t, llm.RoleAssistant, turns[1].Role)
}

func TestTruncationKeepsNewestInOrder(t *testing.T) {
	s := NewStore(20)

	for i := 0; i < 25; i++ {
		s.Append("u1", llm.UserMessage(fmt.Sprintf("msg-%d", i)))
	}

	turns := s.Get("u1")
	require.Len(t, turns, 20)
	assert.Equal(t, "msg-5", turns[0].Content)
	assert.Equal(t, "msg-24", turns[19].Content)
}

func TestSendersAreIsolated(t *testing.T) {
	s := NewStore(20)

	s.Append("u1", llm.UserMessage("a"))
	s.Append("u2", llm.UserMessage("b"), llm.AssistantMessage("c"))

	assert.Equal(t, 1, s.Len("u1"))
	assert.Equal(t, 2, s.Len("u2"))
	assert.Equal(t, 0, s.Len("u3"))
}

func TestEvict(t *testing.T) {
	s := NewStore(20)
	s.Append("u1", llm.UserMessage("a"))
	s.Evict("u1")
	assert.Equal(t, 0, s.Len("u1"))
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore(20)
	s.Append("u1", llm.UserMessage("original"))

	turns := s.Get("u1")
	turns[0].Content = "mutated"

	assert.Equal(t, "original", s.Get("u1")[0].Content)
}

func TestConcurrentAppends(t *testing.T) {
	s := NewStore(100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := fmt.Sprintf("u%d", i)
			for j := 0; j < 20; j++ {
				s.Lock(sender)
				s.Append(sender, llm.UserMessage("x"))
				s.Unlock(sender)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		assert.Equal(t, 20, s.Len(fmt.Sprintf("u%d", i)))
	}
}
