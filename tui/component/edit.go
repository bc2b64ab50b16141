package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Command 以 / 开头的输入命令
type Command string

const (
	CommandNone    Command = ""
	CommandReindex Command = "/reindex"
	CommandClear   Command = "/clear"
	CommandQuit    Command = "/quit"
)

// EditorSubmitMsg 用户提交输入；Command 非空时 Value 被忽略
type EditorSubmitMsg struct {
	Value   string
	Command Command
}

// ParseInput 区分普通提问和命令，未知命令按普通提问处理
func ParseInput(value string) EditorSubmitMsg {
	v := strings.TrimSpace(value)
	switch Command(strings.ToLower(v)) {
	case CommandReindex, CommandClear, CommandQuit:
		return EditorSubmitMsg{Command: Command(strings.ToLower(v))}
	}
	return EditorSubmitMsg{Value: v}
}

// EditModel 封装输入框组件
type EditModel struct {
	textarea textarea.Model
	width    int
}

// NewEditModel 创建新的输入框组件
func NewEditModel() EditModel {
	ta := textarea.New()
	ta.Placeholder = "Ask about our services, products or projects..."
	ta.Focus()

	ta.Prompt = "> "
	ta.CharLimit = 1000

	ta.SetWidth(30)
	ta.SetHeight(1)

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false

	// Enter 用于提交
	ta.KeyMap.InsertNewline.SetEnabled(false)

	return EditModel{
		textarea: ta,
		width:    30,
	}
}

// Init 初始化组件
func (m EditModel) Init() tea.Cmd {
	return textarea.Blink
}

// Update 更新组件状态
func (m EditModel) Update(msg tea.Msg) (EditModel, tea.Cmd) {
	var cmd tea.Cmd

	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		value := m.textarea.Value()
		if strings.TrimSpace(value) == "" {
			return m, nil
		}
		m.textarea.Reset()
		submit := ParseInput(value)
		return m, func() tea.Msg { return submit }
	}

	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// View 渲染组件视图
func (m *EditModel) View() string {
	return m.textarea.View()
}

// SetWidth 设置组件宽度
func (m *EditModel) SetWidth(width int) {
	m.width = width
	m.textarea.SetWidth(width)
}

// Height 返回组件高度
func (m *EditModel) Height() int {
	return m.textarea.Height()
}
