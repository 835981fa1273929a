package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	helpText           = "For Support Contact Google.com"
	notedText          = "Noted 👍, Keep texting me your thoughts. To generate the posts, just enter the command: /generate"
	noEventsText       = "No events for the day."
	difficultiesText   = "Facing Difficulties!"
	tryAgainLaterText  = "Facing Difficulties, please try again later."
	notRegisteredText  = "I don't know you yet. Send /start first."
	maxMessageRunes    = 4000
	generationErrorFmt = "%s 😞. PLEASE TRY AGAIN LATER!"
)

func greetingText(firstName string) string {
	return fmt.Sprintf("Hey! %s, Welcome. I will be writing highly engaging social media for you 🚀 Just keep feeding me with the events throughout the day. Let's shine on social media.", firstName)
}

func waitText(firstName string) string {
	return fmt.Sprintf("Hey %s, kindly wait for a moment. I am curating posts for you 🚀⏳.", firstName)
}

func generationErrorText(summary string) string {
	return fmt.Sprintf(generationErrorFmt, summary)
}

func usageText(prompt, completion int64) string {
	return fmt.Sprintf("Tokens used so far:\nprompt: %d\ncompletion: %d\ntotal: %d", prompt, completion, prompt+completion)
}

// splitMessage cuts text into chunks Telegram accepts, preferring line breaks.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		if i := lastNewline(runes[:limit]); i > limit/2 {
			cut = i + 1
		}
		parts = append(parts, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func lastNewline(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}
