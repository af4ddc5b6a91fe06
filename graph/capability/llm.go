package capability

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/graphrun/graphrun/graph"
)

const reviewSystemPrompt = "You are a senior Go code reviewer. Review the " +
	"provided source for correctness, error handling, naming and API design. " +
	"Be specific and reference line content rather than line numbers."

// LLMReview returns a capability that sends state["code"] to a chat model
// for review and writes the response to "llm_review". The model name falls
// back to gpt-4o-mini when empty.
//
// Unlike the static builtins, this capability does network I/O and honors
// context cancellation through the SDK.
//
// Example:
//
//	client := openai.NewClient(option.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	registry.Register("llm_review", capability.LLMReview(&client, "gpt-4o"))
func LLMReview(client *openai.Client, model string) graph.Capability {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return func(ctx context.Context, state graph.State) (graph.State, error) {
		if client == nil {
			return nil, errors.New("llm_review: client is required")
		}
		code, _ := state.Get("code", "").(string)
		if strings.TrimSpace(code) == "" {
			return nil, errors.New("llm_review: state key \"code\" is empty")
		}

		completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: shared.ChatModel(model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(reviewSystemPrompt),
				openai.UserMessage(code),
			},
		})
		if err != nil {
			return nil, err
		}
		if len(completion.Choices) == 0 {
			return nil, errors.New("llm_review: empty response")
		}

		return graph.State{
			"llm_review":       completion.Choices[0].Message.Content,
			"llm_review_model": model,
		}, nil
	}
}
