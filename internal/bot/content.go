package bot

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf16"

	"murmur/internal/channels"
	"murmur/internal/memory"
)

// maxMessageUnits is Telegram's limit on message text, in UTF-16 units.
const maxMessageUnits = 4096

type userContext struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// composeContent wraps the user's text with who sent it and what the bot
// remembers about the chat. A nil user leaves the <user> block out.
func composeContent(text string, user *userContext, notes []memory.Entry) (string, error) {
	if notes == nil {
		notes = []memory.Entry{}
	}
	mem, err := json.Marshal(notes)
	if err != nil {
		return "", fmt.Errorf("encoding chat memory: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<content>\n%s\n</content>\n\n<context>\n", text)
	if user != nil {
		u, err := json.Marshal(user)
		if err != nil {
			return "", fmt.Errorf("encoding user: %w", err)
		}
		fmt.Fprintf(&b, "  <user>\n  %s\n  </user>\n\n", u)
	}
	fmt.Fprintf(&b, "  <chat-memory>\n  %s\n  </chat-memory>\n</context>\n", mem)
	return b.String(), nil
}

// mentions reports whether m tags @username through a mention entity.
func mentions(m *channels.Message, username string) bool {
	if username == "" {
		return false
	}
	var units []uint16
	for _, e := range m.Entities {
		if e.Type != "mention" {
			continue
		}
		if units == nil {
			units = utf16.Encode([]rune(m.Text))
		}
		if e.Offset < 0 || e.Length < 0 || e.Offset+e.Length > len(units) {
			continue
		}
		tag := string(utf16.Decode(units[e.Offset : e.Offset+e.Length]))
		if strings.EqualFold(tag, "@"+username) {
			return true
		}
	}
	return false
}

// splitMessage cuts text into chunks Telegram accepts, preferring line
// breaks in the second half of a chunk.
func splitMessage(text string) []string {
	var chunks []string
	for text != "" {
		cut, units, lastNL := len(text), 0, -1
		for i, r := range text {
			n := utf16.RuneLen(r)
			if n < 0 {
				n = 1
			}
			if units+n > maxMessageUnits {
				cut = i
				if lastNL > 0 {
					cut = lastNL + 1
				}
				break
			}
			units += n
			if r == '\n' && units > maxMessageUnits/2 {
				lastNL = i
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return chunks
}

func newChatNotice(c channels.Chat) string {
	if c.ID < 0 {
		return fmt.Sprintf("New group chat \"%s\" (%d) added to the database. Please approve or reject it.", c.Title, c.ID)
	}
	return fmt.Sprintf("New private chat with @%s %s %s (%d) added to the database. Please approve or reject it.",
		c.Username, c.FirstName, c.LastName, c.ID)
}

func chatTitle(c channels.Chat) string {
	if c.Title != "" {
		return c.Title
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
