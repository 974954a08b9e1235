package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// AIProvider answers a single question with a single accumulated reply.
type AIProvider interface {
	Ask(ctx context.Context, question string) (string, error)
}

// EinoAI runs questions through an eino prompt/model chain and accumulates
// the streamed chunks into one reply.
type EinoAI struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	systemPrompt string
	log          *slog.Logger
}

// NewEinoAI compiles the chat chain once at startup.
func NewEinoAI(ctx context.Context, chatModel model.ChatModel, systemPrompt string, log *slog.Logger) (*EinoAI, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chat chain: %w", err)
	}

	return &EinoAI{
		chain:        runnable,
		systemPrompt: systemPrompt,
		log:          log,
	}, nil
}

// Ask streams the model output and concatenates it into a single string.
func (a *EinoAI) Ask(ctx context.Context, question string) (string, error) {
	input := map[string]any{
		"system": a.systemPrompt,
		"query":  question,
	}

	stream, err := a.chain.Stream(ctx, input)
	if err != nil {
		return "", fmt.Errorf("stream chat chain: %w", err)
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}

	a.log.Debug("ai reply accumulated", "length", len(response.Content))
	return response.Content, nil
}
