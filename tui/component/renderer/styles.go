package renderer

import (
	"github.com/charmbracelet/lipgloss"
)

// MessageStyles 消息渲染样式配置
type MessageStyles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style

	// 来源与置信度
	Source     lipgloss.Style
	Confidence lipgloss.Style
	Indent     lipgloss.Style
}

// DefaultMessageStyles 返回默认消息样式配置
func DefaultMessageStyles() *MessageStyles {
	return &MessageStyles{
		User:       lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff")).Bold(true),
		Assistant:  lipgloss.NewStyle().Foreground(lipgloss.Color("#bb9af7")).Bold(true),
		System:     lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89")).Italic(true),
		Source:     lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a")),
		Confidence: lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68")).Faint(true),
		Indent:     lipgloss.NewStyle().PaddingLeft(2),
	}
}
