// Package assistant produces the canned reply that stands in for a model
// call. No API key, no network, same answer for the same input.
package assistant

import (
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	UserRole      = openai.ChatMessageRoleUser
	AssistantRole = openai.ChatMessageRoleAssistant
	SystemRole    = openai.ChatMessageRoleSystem
)

const DefaultModel = openai.GPT4oMini

// EchoLimit caps how much of the user's text is quoted back in the reply.
const EchoLimit = 180

const replyPrefix = "Entendi. Aqui está um rascunho de resposta e próximos passos:\n\nResumo: "

const replySuffix = "\n\n" +
	"Sugestões:\n" +
	"- Se precisar, posso gerar um plano passo a passo.\n" +
	"- Posso criar listas, tabelas em Markdown e exemplos de código.\n" +
	"- Diga 'refinar' para melhorar alguma parte específica.\n\n" +
	"Ferramentas mentais usadas: decomposição, exemplos, checklist."

// Reply builds the assistant answer for the given user text: trims it, echoes
// the first EchoLimit characters (with a trailing ellipsis when cut) and
// appends the fixed suggestion block.
func Reply(text string) string {
	echo := strings.TrimSpace(text)
	if runes := []rune(echo); len(runes) > EchoLimit {
		echo = string(runes[:EchoLimit]) + "..."
	}
	return replyPrefix + echo + replySuffix
}
