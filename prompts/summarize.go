package prompts

// SummarizeSystemPrompt frames the model as a podcast script writer.
const SummarizeSystemPrompt = "You are a helpful assistant that summarizes longer text into podcast ready scripts."

// DefaultSummarizePrompt wraps one chunk of article text.
var DefaultSummarizePrompt = NewPromptTemplate("Summarize this:\n{{.text}}")

// DefaultTitlePrompt asks for a single headline over a digest of stories.
var DefaultTitlePrompt = NewPromptTemplate(
	`below are {{.count}} stories, make a eye catching title from any of the story that you feel best to attract reader's attention

{{.stories}}

Title:`)
