package component

import (
	"fmt"
	"time"

	"mysoft-chat/llm/agent"
	"mysoft-chat/pubsub"
	"mysoft-chat/tui/component/renderer"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const readyText = "Ready"

// ReindexStartedMsg 用户触发了重建索引
type ReindexStartedMsg struct{}

// StatusModel 状态显示组件（spinner + 状态文本）
type StatusModel struct {
	spinner spinner.Model
	running bool
	text    string
	started time.Time
	width   int
}

// NewStatusModel 创建新的状态组件
func NewStatusModel() StatusModel {
	s := spinner.New()
	s.Spinner = spinner.Jump
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return StatusModel{
		spinner: s,
		text:    readyText,
	}
}

// Init 初始化组件
func (m StatusModel) Init() tea.Cmd {
	return nil
}

// Update 更新组件状态
func (m StatusModel) Update(msg tea.Msg) (StatusModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ReindexStartedMsg:
		return m.start("Rebuilding knowledge index...")
	case pubsub.Event[agent.ChatEvent]:
		switch msg.Type {
		case pubsub.CreatedEvent:
			return m.start("Thinking...")
		case pubsub.FinishedEvent:
			m.running = false
			m.text = fmt.Sprintf("%s (last reply %s)", readyText, renderer.FormatDuration(time.Since(m.started)))
			return m, nil
		case pubsub.UpdatedEvent:
			m.running = false
			m.text = readyText
			if r := msg.Payload.Reindex; r != nil && r.Status == agent.ReindexSuccess {
				m.text = fmt.Sprintf("%s (%d chunks indexed)", readyText, r.Chunks)
			}
			return m, nil
		case pubsub.DeletedEvent:
			m.text = readyText + " (history cleared)"
			return m, nil
		}
	}

	// spinner 动画帧
	if m.running {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m StatusModel) start(text string) (StatusModel, tea.Cmd) {
	m.text = text
	m.started = time.Now()
	if m.running {
		return m, nil
	}
	m.running = true
	return m, m.spinner.Tick
}

// View 渲染组件视图
func (m StatusModel) View() string {
	style := lipgloss.NewStyle().Padding(1, 0)
	content := m.text
	if m.running {
		content = fmt.Sprintf("%s %s", m.spinner.View(), m.text)
	}
	return style.Render(content)
}

// SetWidth 设置组件宽度
func (m *StatusModel) SetWidth(width int) {
	m.width = width
}

// IsRunning 返回 spinner 是否在运行
func (m StatusModel) IsRunning() bool {
	return m.running
}

// Text 返回当前状态文本
func (m StatusModel) Text() string {
	return m.text
}
