package renderer

import (
	"fmt"
	"strings"

	"mysoft-chat/llm"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const welcomeText = "Welcome! Ask anything about Mysoft Heaven (BD) Ltd. and press Enter to send.\n" +
	"Commands: /reindex rebuilds the knowledge index, /clear clears the history, /quit exits."

// Role 聊天条目的角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Entry 聊天列表中的一条记录
type Entry struct {
	Role       Role
	Text       string
	Path       string                // 回复路径（grounded / simulated / ...）
	Confidence float64               // 检索平均相似度
	Sources    []llm.RetrievalResult // 检索到的来源
}

// EntriesFromHistory 将持久化的对话历史转换为列表条目
func EntriesFromHistory(turns []llm.ConversationTurn) []Entry {
	entries := make([]Entry, 0, 2*len(turns))
	for _, turn := range turns {
		entries = append(entries,
			Entry{Role: RoleUser, Text: turn.UserQuery},
			Entry{Role: RoleAssistant, Text: turn.AssistantResponse},
		)
	}
	return entries
}

// MessageRenderer 消息渲染器
type MessageRenderer struct {
	markdownRenderer *glamour.TermRenderer
	styles           *MessageStyles
	renderedCache    []string // 已渲染条目的缓存
	viewportWidth    int
}

// NewMessageRenderer 创建消息渲染器
func NewMessageRenderer(styles *MessageStyles) *MessageRenderer {
	if styles == nil {
		styles = DefaultMessageStyles()
	}

	// Markdown 渲染器 (Dracula 主题)
	markdownRenderer, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dracula"),
		glamour.WithWordWrap(0), // 由外部控制换行
	)
	return &MessageRenderer{
		markdownRenderer: markdownRenderer,
		styles:           styles,
		renderedCache:    make([]string, 0),
	}
}

// SetViewportWidth 设置视口宽度
func (r *MessageRenderer) SetViewportWidth(width int) {
	r.viewportWidth = width
}

// Reset 清空渲染缓存
func (r *MessageRenderer) Reset() {
	r.renderedCache = r.renderedCache[:0]
}

// RenderEntries 渲染所有条目；除最后一条外都走缓存
func (r *MessageRenderer) RenderEntries(entries []Entry) string {
	if len(entries) == 0 {
		return welcomeText
	}

	// 列表变短（例如清空历史）时重置缓存
	if len(entries) < len(r.renderedCache) {
		r.Reset()
	}

	for i := len(r.renderedCache); i < len(entries)-1; i++ {
		r.renderedCache = append(r.renderedCache, r.RenderEntry(entries[i]))
	}

	var sb strings.Builder
	for _, cached := range r.renderedCache {
		if cached != "" {
			sb.WriteString(cached)
			sb.WriteString("\n\n")
		}
	}
	sb.WriteString(r.RenderEntry(entries[len(entries)-1]))

	content := sb.String()
	if r.viewportWidth > 0 {
		return lipgloss.NewStyle().Width(r.viewportWidth).Render(content)
	}
	return content
}

// RenderEntry 渲染单条记录
func (r *MessageRenderer) RenderEntry(e Entry) string {
	if e.Text == "" {
		return ""
	}
	switch e.Role {
	case RoleUser:
		return r.styles.User.Render("You:") + " " + e.Text
	case RoleAssistant:
		return r.renderAssistant(e)
	case RoleSystem:
		return r.styles.System.Render("System: " + e.Text)
	}
	return ""
}

// RenderMarkdown 渲染 Markdown 内容，失败时返回原文
func (r *MessageRenderer) RenderMarkdown(content string) string {
	if r.markdownRenderer == nil {
		return content
	}
	rendered, err := r.markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	// glamour 会添加前后换行
	return strings.TrimSpace(rendered)
}

func (r *MessageRenderer) renderAssistant(e Entry) string {
	parts := []string{
		r.styles.Assistant.Render("Assistant:"),
		r.RenderMarkdown(e.Text),
	}
	if len(e.Sources) > 0 {
		parts = append(parts, r.renderSources(e))
	}
	return strings.Join(parts, "\n")
}

// renderSources 来源列表：URL 与相似度
func (r *MessageRenderer) renderSources(e Entry) string {
	lines := []string{
		r.styles.Confidence.Render(fmt.Sprintf("confidence %.2f · %s", e.Confidence, e.Path)),
	}
	for i, src := range e.Sources {
		label := src.Chunk.SourceURL
		if label == "" {
			label = src.Chunk.SourcePath
		}
		lines = append(lines, r.styles.Source.Render(
			fmt.Sprintf("[%d] %s (%.2f)", i+1, ShortenURL(label), src.Similarity)))
	}
	return r.styles.Indent.Render(strings.Join(lines, "\n"))
}
