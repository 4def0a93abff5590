package schema

import "strings"

type ChatMessageType string

const (
	ChatMessageTypeSystem  ChatMessageType = "system"
	ChatMessageTypeHuman   ChatMessageType = "human"
	ChatMessageTypeAI      ChatMessageType = "ai"
	ChatMessageTypeGeneric ChatMessageType = "generic"
)

type ContentPart interface {
	String() string
	isPart()
}

type TextContent struct {
	Text string
}

func (tc TextContent) String() string {
	return tc.Text
}

func (TextContent) isPart() {}

// MessageContent is one chat turn made of one or more parts.
type MessageContent struct {
	Role  ChatMessageType
	Parts []ContentPart
}

func (mc MessageContent) String() string {
	if len(mc.Parts) == 0 {
		return ""
	}

	var parts []string
	for _, part := range mc.Parts {
		if s := part.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func (mc MessageContent) GetTextContent() string {
	return mc.String()
}

func NewTextMessage(role ChatMessageType, text string) MessageContent {
	return MessageContent{
		Role:  role,
		Parts: []ContentPart{TextContent{Text: text}},
	}
}

func NewSystemMessage(text string) MessageContent {
	return NewTextMessage(ChatMessageTypeSystem, text)
}

func NewHumanMessage(text string) MessageContent {
	return NewTextMessage(ChatMessageTypeHuman, text)
}

func NewAIMessage(text string) MessageContent {
	return NewTextMessage(ChatMessageTypeAI, text)
}

// Conversation builds a system + human exchange, omitting the system turn
// when it is blank.
func Conversation(system, human string) []MessageContent {
	msgs := make([]MessageContent, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, NewSystemMessage(system))
	}
	return append(msgs, NewHumanMessage(human))
}

// LastHumanText returns the text of the last human turn, or "".
func LastHumanText(messages []MessageContent) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ChatMessageTypeHuman {
			return messages[i].GetTextContent()
		}
	}
	return ""
}
