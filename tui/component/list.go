package component

import (
	"mysoft-chat/llm/agent"
	"mysoft-chat/pubsub"
	"mysoft-chat/tui/component/renderer"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// HistoryLoadedMsg 启动时加载到的对话历史
type HistoryLoadedMsg struct {
	Entries []renderer.Entry
}

// ListModel 封装消息列表组件
// 负责条目存储和 viewport 管理，渲染委托给 MessageRenderer
type ListModel struct {
	viewport viewport.Model
	entries  []renderer.Entry
	width    int
	height   int
	ready    bool

	renderer *renderer.MessageRenderer
}

// NewListModel 创建新的消息列表组件
func NewListModel() ListModel {
	msgRenderer := renderer.NewMessageRenderer(nil)

	vp := viewport.New(30, 30)
	vp.SetContent(msgRenderer.RenderEntries(nil))

	return ListModel{
		viewport: vp,
		entries:  make([]renderer.Entry, 0),
		renderer: msgRenderer,
		width:    30,
		height:   5,
		ready:    true,
	}
}

// Init 初始化组件
func (m ListModel) Init() tea.Cmd {
	return nil
}

// Update 更新组件状态
func (m ListModel) Update(msg tea.Msg) (ListModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.viewport.ScrollUp(3)
		case tea.MouseButtonWheelDown:
			m.viewport.ScrollDown(3)
		}
	case HistoryLoadedMsg:
		m.entries = append(append([]renderer.Entry{}, msg.Entries...), m.entries...)
		m.renderer.Reset()
		m.refresh()
		return m, nil
	case pubsub.Event[agent.ChatEvent]:
		if entry, ok := entryFor(msg); ok {
			m.entries = append(m.entries, entry)
		}
		if msg.Type == pubsub.DeletedEvent {
			m.entries = m.entries[:0]
			m.renderer.Reset()
		}
		m.refresh()
		return m, nil
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// entryFor 将运行时事件映射为列表条目
func entryFor(event pubsub.Event[agent.ChatEvent]) (renderer.Entry, bool) {
	p := event.Payload
	switch event.Type {
	case pubsub.CreatedEvent:
		return renderer.Entry{Role: renderer.RoleUser, Text: p.Query}, true
	case pubsub.FinishedEvent:
		if p.Err != nil {
			return renderer.Entry{Role: renderer.RoleSystem, Text: p.Err.Error()}, true
		}
		if p.Reply == nil {
			return renderer.Entry{}, false
		}
		return renderer.Entry{
			Role:       renderer.RoleAssistant,
			Text:       p.Reply.Text,
			Path:       string(p.Reply.Path),
			Confidence: p.Reply.Confidence,
			Sources:    p.Reply.Sources,
		}, true
	case pubsub.UpdatedEvent:
		if p.Reindex == nil {
			return renderer.Entry{}, false
		}
		return renderer.Entry{Role: renderer.RoleSystem, Text: p.Reindex.Message}, true
	}
	return renderer.Entry{}, false
}

// View 渲染组件视图
func (m ListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return m.viewport.View()
}

// SetSize 设置组件尺寸
func (m *ListModel) SetSize(width, height int) {
	m.width = width
	m.height = height

	// 高度至少为 1
	if height < 1 {
		height = 1
	}

	m.viewport.Width = width
	m.viewport.Height = height
	m.ready = true

	m.renderer.SetViewportWidth(width)
	m.renderer.Reset()
	m.refresh()
}

// Entries 返回当前条目
func (m ListModel) Entries() []renderer.Entry {
	return m.entries
}

func (m *ListModel) refresh() {
	m.viewport.SetContent(m.renderer.RenderEntries(m.entries))
	m.viewport.GotoBottom()
}
