package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mysoft-chat/llm"
	"mysoft-chat/llm/vector"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrEmptyQuery is returned for blank queries
var ErrEmptyQuery = errors.New("query cannot be empty")

// ChatModel is the part of an eino chat model the composer needs
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// ReplyPath records which branch produced a reply
type ReplyPath string

const (
	PathCanned     ReplyPath = "canned"
	PathNoContext  ReplyPath = "no_context"
	PathGrounded   ReplyPath = "grounded"
	PathSimulated  ReplyPath = "simulated"
	PathModelError ReplyPath = "model_error"
)

// simulatedPrefix marks replies produced without a language model
const simulatedPrefix = "[Simulated Response based on Context]: "

// Reply is the outcome of one chat query
type Reply struct {
	Query      string                `json:"query"`
	Text       string                `json:"response"`
	Path       ReplyPath             `json:"path"`
	Kind       ConversationalKind    `json:"kind,omitempty"`
	Language   Language              `json:"language,omitempty"`
	Confidence float64               `json:"confidence"`
	Sources    []llm.RetrievalResult `json:"sources,omitempty"`
}

// ComposerConfig tunes retrieval and prompt assembly
type ComposerConfig struct {
	TopK                int           // Chunks retrieved per query
	PromptTurns         int           // Stored turns replayed to the model
	MaxWords            int           // Word limit stated in the instruction
	SimilarityThreshold float64       // Below this average a warning is logged; never gates
	CompanyName         string        // Organisation named in prompts and canned replies
	ModelTimeout        time.Duration // Upper bound on one model call
	SimulatedExcerpt    int           // Context characters echoed in simulated mode
}

// DefaultComposerConfig returns the default composer configuration
func DefaultComposerConfig() ComposerConfig {
	return ComposerConfig{
		TopK:                3,
		PromptTurns:         3,
		MaxWords:            200,
		SimilarityThreshold: 0.30,
		CompanyName:         DefaultCompanyName,
		ModelTimeout:        60 * time.Second,
		SimulatedExcerpt:    200,
	}
}

// Composer answers one query: canned small talk, or retrieval-grounded generation
type Composer struct {
	index   vector.Index
	store   ConversationStore
	model   ChatModel
	replies Replies
	config  ComposerConfig
	logger  *slog.Logger
}

// NewComposer creates a composer. A nil chatModel selects simulated replies.
func NewComposer(index vector.Index, store ConversationStore, chatModel ChatModel, config ComposerConfig, logger *slog.Logger) *Composer {
	defaults := DefaultComposerConfig()
	if config.TopK <= 0 {
		config.TopK = defaults.TopK
	}
	if config.PromptTurns < 0 {
		config.PromptTurns = 0
	}
	if config.MaxWords <= 0 {
		config.MaxWords = defaults.MaxWords
	}
	if config.CompanyName == "" {
		config.CompanyName = defaults.CompanyName
	}
	if config.SimulatedExcerpt <= 0 {
		config.SimulatedExcerpt = defaults.SimulatedExcerpt
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Composer{
		index:   index,
		store:   store,
		model:   chatModel,
		replies: DefaultReplies(config.CompanyName),
		config:  config,
		logger:  logger,
	}
}

// Replies returns the canned texts the composer uses
func (c *Composer) Replies() Replies {
	return c.replies
}

// Respond produces a reply for query and records the turn. Only a blank query
// is an error; every other failure degrades to a textual reply.
// The turn is stored with query exactly as received; the trimmed form drives
// classification and retrieval.
func (c *Composer) Respond(ctx context.Context, query string) (*Reply, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, ErrEmptyQuery
	}

	reply := c.compose(ctx, trimmed)
	c.record(ctx, query, reply)
	return reply, nil
}

func (c *Composer) compose(ctx context.Context, query string) *Reply {
	reply := &Reply{Query: query, Language: DetectLanguage(query)}

	if kind := ClassifyConversational(query); kind != KindNone {
		c.logger.Info("conversational query, skipping retrieval", "kind", kind)
		reply.Path = PathCanned
		reply.Kind = kind
		reply.Text = c.replies.For(kind)
		return reply
	}

	results := c.retrieve(ctx, query)
	reply.Sources = results
	reply.Confidence = AverageSimilarity(results)

	if len(results) == 0 {
		c.logger.Info("no context found", "query", query)
		reply.Path = PathNoContext
		reply.Text = c.replies.NoContext
		return reply
	}

	if reply.Confidence < c.config.SimilarityThreshold {
		c.logger.Warn("low retrieval similarity",
			"query", query, "similarity", reply.Confidence, "threshold", c.config.SimilarityThreshold)
	}

	contextText := JoinContext(results)

	if c.model == nil {
		reply.Path = PathSimulated
		reply.Text = simulatedPrefix + truncateRunes(contextText, c.config.SimulatedExcerpt) + "..."
		return reply
	}

	history := c.recentHistory(ctx)
	system := fmt.Sprintf(GroundedPrompt, c.config.CompanyName, reply.Language, c.config.MaxWords, contextText)
	messages := BuildMessages(system, history, query)

	text, err := c.generate(ctx, messages)
	if err != nil {
		c.logger.Error("model call failed", "error", err)
		reply.Path = PathModelError
		reply.Text = "Error generating response: " + err.Error()
		return reply
	}

	reply.Path = PathGrounded
	reply.Text = text
	return reply
}

// retrieve searches the index; an unavailable index counts as no context
func (c *Composer) retrieve(ctx context.Context, query string) []llm.RetrievalResult {
	results, err := c.index.Search(ctx, query, c.config.TopK)
	if err != nil {
		c.logger.Warn("knowledge index unavailable", "error", err)
		return nil
	}

	c.logger.Info("retrieved context",
		"query", query, "results", len(results), "similarity", AverageSimilarity(results))
	return results
}

// recentHistory returns the last PromptTurns stored turns, oldest first
func (c *Composer) recentHistory(ctx context.Context) []llm.ConversationTurn {
	if c.config.PromptTurns == 0 {
		return nil
	}
	turns, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("failed to load chat history", "error", err)
		return nil
	}
	if len(turns) > c.config.PromptTurns {
		turns = turns[len(turns)-c.config.PromptTurns:]
	}
	return turns
}

func (c *Composer) generate(ctx context.Context, messages []*schema.Message) (string, error) {
	if c.config.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ModelTimeout)
		defer cancel()
	}

	msg, err := c.model.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	if msg == nil {
		return "", fmt.Errorf("model returned no message")
	}
	return msg.Content, nil
}

// record persists the turn; failures are logged and never reach the caller
func (c *Composer) record(ctx context.Context, query string, reply *Reply) {
	err := c.store.Append(context.WithoutCancel(ctx), llm.ConversationTurn{
		UserQuery:         query,
		AssistantResponse: reply.Text,
	})
	if err != nil {
		c.logger.Error("failed to record chat turn", "error", err)
	}
}

// BuildMessages orders the system instruction, past turns and the current query
func BuildMessages(system string, history []llm.ConversationTurn, query string) []*schema.Message {
	messages := make([]*schema.Message, 0, 2+2*len(history))
	messages = append(messages, schema.SystemMessage(system))
	for _, turn := range history {
		messages = append(messages,
			schema.UserMessage(turn.UserQuery),
			schema.AssistantMessage(turn.AssistantResponse, nil),
		)
	}
	return append(messages, schema.UserMessage(query))
}

// JoinContext concatenates retrieved chunk texts separated by blank lines
func JoinContext(results []llm.RetrievalResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	return strings.Join(texts, "\n\n")
}

// AverageSimilarity is the mean similarity of results, 0 when there are none
func AverageSimilarity(results []llm.RetrievalResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var total float64
	for _, r := range results {
		total += r.Similarity
	}
	return total / float64(len(results))
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
