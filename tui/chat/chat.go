package chat

import (
	"context"

	"mysoft-chat/llm/agent"
	"mysoft-chat/pubsub"
	"mysoft-chat/tui/component"
	"mysoft-chat/tui/component/renderer"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model 聊天界面模型
type Model struct {
	list   component.ListModel
	edit   component.EditModel
	status component.StatusModel

	runtime *agent.Runtime
	sub     <-chan pubsub.Event[agent.ChatEvent]
	ctx     context.Context
	cancel  context.CancelFunc

	width  int
	height int
}

// InitialModel 创建初始模型并订阅运行时事件
func InitialModel(runtime *agent.Runtime) Model {
	ctx, cancel := context.WithCancel(context.Background())
	sub := runtime.Broker().Subscribe(ctx)

	return Model{
		list:    component.NewListModel(),
		edit:    component.NewEditModel(),
		status:  component.NewStatusModel(),
		runtime: runtime,
		sub:     sub,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.list.Init(),
		m.edit.Init(),
		m.status.Init(),
		m.loadHistory(),
		m.waitForEvent(),
	)
}

// waitForEvent 等待下一条运行时事件
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.sub
		if !ok {
			return nil
		}
		return event
	}
}

// loadHistory 读取已持久化的对话
func (m Model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		turns, err := m.runtime.History(m.ctx, 0)
		if err != nil {
			return nil
		}
		return component.HistoryLoadedMsg{Entries: renderer.EntriesFromHistory(turns)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		statusHeight := lipgloss.Height(m.status.View())
		editHeight := m.edit.Height()
		listHeight := m.height - statusHeight - editHeight

		m.list.SetSize(m.width, listHeight)
		m.edit.SetWidth(m.width)
		m.status.SetWidth(m.width)

	case component.EditorSubmitMsg:
		switch msg.Command {
		case component.CommandQuit:
			m.cancel()
			return m, tea.Quit
		case component.CommandReindex:
			// 结果通过 Updated 事件回到界面
			go m.runtime.Reindex(m.ctx)
			cmds = append(cmds, func() tea.Msg { return component.ReindexStartedMsg{} })
		case component.CommandClear:
			go func() { _ = m.runtime.ClearHistory(m.ctx) }()
		default:
			// 回复通过 Created / Finished 事件回到界面
			query := msg.Value
			go func() { _, _ = m.runtime.Chat(m.ctx, query) }()
		}

	case pubsub.Event[agent.ChatEvent]:
		cmds = append(cmds, m.waitForEvent())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancel()
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd

	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)

	m.edit, cmd = m.edit.Update(msg)
	cmds = append(cmds, cmd)

	m.status, cmd = m.status.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.list.View(),
		m.status.View(),
		m.edit.View(),
	)
}
