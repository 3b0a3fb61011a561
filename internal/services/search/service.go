package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deepgram/threadgate/internal/infrastructure/groq"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a research assistant with access to web_search and visit_website tools. " +
	"Perform a search for the given query, read a few sources, and summarize findings in a single paragraph. " +
	"Return ONLY a valid JSON with fields: query, summary, sources (list of URLs)."

// Result is the structured summary of a web search
type Result struct {
	Query   string   `json:"query"`
	Summary string   `json:"summary"`
	Sources []string `json:"sources"`
}

type Service struct {
	groq *groq.Service
}

func NewService(groqService *groq.Service) *Service {
	if groqService == nil {
		return nil
	}
	return &Service{groq: groqService}
}

// Search never fails; upstream problems are reported in the summary
func (s *Service) Search(ctx context.Context, query string) Result {
	resp, err := s.groq.GetClient().CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.groq.GetModel(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Temperature:         0.7,
		MaxCompletionTokens: 512,
		TopP:                1,
		Stream:              false,
	})
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Search completion failed")
		return Result{Query: query, Summary: fmt.Sprintf("search failed: %v", err), Sources: []string{}}
	}

	if len(resp.Choices) == 0 {
		log.Warn().Str("query", query).Msg("Search completion returned no choices")
		return Result{Query: query, Summary: "search failed: no response choices returned", Sources: []string{}}
	}

	return parseResult(query, strings.TrimSpace(resp.Choices[0].Message.Content))
}

// parseResult reads the model's JSON answer; anything unparsable becomes the summary
func parseResult(query, message string) Result {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(stripCodeFence(message)), &parsed); err != nil || parsed == nil {
		log.Debug().Str("query", query).Msg("Search answer was not JSON, returning it as summary")
		return Result{Query: query, Summary: message, Sources: []string{}}
	}

	result := Result{Query: query, Sources: []string{}}
	if q, ok := parsed["query"].(string); ok {
		result.Query = q
	}
	if summary, ok := parsed["summary"].(string); ok {
		result.Summary = summary
	}
	if sources, ok := parsed["sources"].([]interface{}); ok {
		for _, source := range sources {
			if url, ok := source.(string); ok {
				result.Sources = append(result.Sources, url)
			}
		}
	}
	return result
}

func stripCodeFence(message string) string {
	if !strings.HasPrefix(message, "```") {
		return message
	}
	message = strings.TrimPrefix(message, "```")
	message = strings.TrimPrefix(message, "json")
	message = strings.TrimSuffix(strings.TrimSpace(message), "```")
	return strings.TrimSpace(message)
}
