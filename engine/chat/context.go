package chat

import (
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tubechat/tubechat/engine/knowledge/selector"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message of the conversation.
type Turn struct {
	Role    Role   `json:"role"    binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

// ContextInput holds everything needed to build a prompt for one question.
type ContextInput struct {
	Title    string
	URL      string
	Decision selector.Decision
	History  []Turn
	Message  string
}

const systemRules = `You are an assistant that answers questions about a single YouTube video.
Answer only from the transcript material below. If the transcript does not cover the question, say that the video does not address it and do not invent content.
Stay on the topic of the video; politely decline unrelated requests.
Transcript lines are formatted as "HH:MM:SS - HH:MM:SS : text", giving the start and end of the time range in which the text is spoken.
When the user refers to a moment such as "@1:35" or "at 12:04", find the line whose range contains that time and answer from it. Cite time ranges when they help.`

// SystemPrompt renders the single system instruction block.
func SystemPrompt(in ContextInput) string {
	var b strings.Builder
	b.WriteString(systemRules)
	b.WriteString("\n\n")
	if in.Title != "" {
		b.WriteString("Video title: ")
		b.WriteString(in.Title)
		b.WriteString("\n")
	}
	if in.URL != "" {
		b.WriteString("Video URL: ")
		b.WriteString(in.URL)
		b.WriteString("\n")
	}
	if in.Decision.Mode == selector.ModeChunks {
		b.WriteString("\nRelevant transcript excerpts (chronological):\n")
		b.WriteString(selector.RenderChunks(in.Decision.Chunks))
	} else {
		b.WriteString("\nTranscript:\n")
		b.WriteString(in.Decision.Text)
	}
	return b.String()
}

// BuildMessages returns the system block, then the history in order, then
// the new message. History is passed through unbounded.
func BuildMessages(in ContextInput) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(in.History)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, SystemPrompt(in)))
	for _, turn := range in.History {
		messages = append(messages, llms.TextParts(messageType(turn.Role), turn.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, in.Message))
	return messages
}

func messageType(role Role) llms.ChatMessageType {
	if role == RoleAssistant {
		return llms.ChatMessageTypeAI
	}
	return llms.ChatMessageTypeHuman
}
