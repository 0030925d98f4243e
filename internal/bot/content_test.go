package bot

import (
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"murmur/internal/channels"
	"murmur/internal/memory"
)

func TestComposeContent(t *testing.T) {
	got, err := composeContent("hello", &userContext{ID: 7, Username: "alice"}, nil)
	require.NoError(t, err)
	want := "<content>\nhello\n</content>\n\n<context>\n" +
		"  <user>\n  {\"id\":7,\"username\":\"alice\"}\n  </user>\n\n" +
		"  <chat-memory>\n  []\n  </chat-memory>\n</context>\n"
	assert.Equal(t, want, got)

	got, err = composeContent("hi", nil, []memory.Entry{{ID: 3, Memory: "m", CreatedAt: "2024-05-01 12:00:00"}})
	require.NoError(t, err)
	assert.NotContains(t, got, "<user>")
	assert.Contains(t, got, `[{"id":3,"memory":"m","created_at":"2024-05-01 12:00:00"}]`)
}

func TestMentions(t *testing.T) {
	m := &channels.Message{Text: "hey @Murmur_Bot", Entities: []channels.MessageEntity{{Type: "mention", Offset: 4, Length: 11}}}
	assert.True(t, mentions(m, "murmur_bot"))
	assert.False(t, mentions(m, ""))

	m.Entities[0].Type = "bold"
	assert.False(t, mentions(m, "murmur_bot"))

	m.Entities = []channels.MessageEntity{{Type: "mention", Offset: 10, Length: 40}}
	assert.False(t, mentions(m, "murmur_bot"), "out of range entity")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short"))
	assert.Empty(t, splitMessage(""))

	long := strings.Repeat("a", maxMessageUnits+10)
	parts := splitMessage(long)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], maxMessageUnits)
	assert.Equal(t, long, strings.Join(parts, ""))

	lines := strings.Repeat("b", maxMessageUnits-100) + "\n" + strings.Repeat("c", 200)
	parts = splitMessage(lines)
	require.Len(t, parts, 2)
	assert.True(t, strings.HasSuffix(parts[0], "\n"))
	assert.Equal(t, strings.Repeat("c", 200), parts[1])

	emoji := strings.Repeat("😀", maxMessageUnits/2+1)
	parts = splitMessage(emoji)
	require.Len(t, parts, 2)
	assert.Len(t, utf16.Encode([]rune(parts[0])), maxMessageUnits)
}
