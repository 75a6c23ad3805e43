package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styling
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0a84ff")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#30d158")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)
)

// Views
const (
	viewMain      = "main"
	viewTemplates = "templates"
	viewTypes     = "types"
	viewOverrides = "overrides"
	viewAgent     = "agent"
	viewDeploy    = "deploy"
	viewBatch     = "batch"
	viewHealth    = "health"
)

// Model defines the application state
type Model struct {
	mainMenu      list.Model
	templateTable table.Model
	typeList      list.Model
	textInput     textinput.Model
	spinner       spinner.Model
	client        *ApiClient

	selectedType string
	lastAgent    *Agent
	deployment   *Deployment
	deployNote   string
	batch        *BatchResponse
	health       *Health

	loading     bool
	currentView string
	error       string
}

// item represents a list item
type item struct {
	title, desc string
}

func (i item) FilterValue() string { return i.title }
func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }

func initialModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	items := []list.Item{
		item{title: "Templates", desc: "Browse the agent catalog"},
		item{title: "Generate Agent", desc: "Compose a new agent profile"},
		item{title: "Deploy Last Agent", desc: "Deploy the most recently generated agent"},
		item{title: "Batch Demo", desc: "Generate one agent of every type"},
		item{title: "Health", desc: "Service status and counters"},
		item{title: "Exit", desc: "Exit the application"},
	}

	mainMenu := list.New(items, list.NewDefaultDelegate(), 0, 0)
	mainMenu.Title = "AgentForge CLI"

	templateTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "Type", Width: 24},
			{Title: "Name", Width: 22},
			{Title: "Role", Width: 32},
			{Title: "Specialization", Width: 34},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	typeList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	typeList.Title = "Choose an agent type"

	ti := textinput.New()
	ti.Placeholder = "specialization (optional)"
	ti.CharLimit = 156
	ti.Width = 50

	return Model{
		mainMenu:      mainMenu,
		templateTable: templateTable,
		typeList:      typeList,
		textInput:     ti,
		spinner:       s,
		client:        NewApiClient(),
		currentView:   viewMain,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.EnterAltScreen)
}

// Update handles UI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.mainMenu.SetSize(msg.Width-h, msg.Height-v)
		m.typeList.SetSize(msg.Width-h, msg.Height-v)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.currentView != viewOverrides {
				return m, tea.Quit
			}
		case "esc":
			if m.currentView != viewMain {
				m.currentView = viewMain
				m.error = ""
				m.textInput.Blur()
				return m, nil
			}
		case "enter":
			return m.handleEnter()
		}
	case templatesMsg:
		m.loading = false
		m.templateTable.SetRows(templateRows(msg.templates))
		m.typeList.SetItems(typeItems(msg.templates))
		return m, nil
	case agentMsg:
		m.loading = false
		m.lastAgent = msg.agent
		m.currentView = viewAgent
		return m, nil
	case deployMsg:
		m.loading = false
		m.deployment = msg.deployment
		m.deployNote = msg.message
		return m, nil
	case batchMsg:
		m.loading = false
		m.batch = msg.batch
		if agent := lastSuccessful(msg.batch); agent != nil {
			m.lastAgent = agent
		}
		return m, nil
	case healthMsg:
		m.loading = false
		m.health = msg.health
		return m, nil
	case errorMsg:
		m.loading = false
		m.error = msg.err
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.currentView {
	case viewMain:
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case viewTemplates:
		m.templateTable, cmd = m.templateTable.Update(msg)
	case viewTypes:
		m.typeList, cmd = m.typeList.Update(msg)
	case viewOverrides:
		m.textInput, cmd = m.textInput.Update(msg)
	}
	return m, cmd
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	m.error = ""
	switch m.currentView {
	case viewMain:
		selected, ok := m.mainMenu.SelectedItem().(item)
		if !ok {
			return m, nil
		}
		switch selected.title {
		case "Exit":
			return m, tea.Quit
		case "Templates":
			m.currentView = viewTemplates
			m.loading = true
			return m, fetchTemplates(m.client)
		case "Generate Agent":
			m.currentView = viewTypes
			m.loading = true
			return m, fetchTemplates(m.client)
		case "Deploy Last Agent":
			m.currentView = viewDeploy
			m.deployment = nil
			if m.lastAgent == nil {
				m.error = "No agent generated yet"
				return m, nil
			}
			m.loading = true
			return m, deployAgent(m.client, m.lastAgent)
		case "Batch Demo":
			m.currentView = viewBatch
			m.batch = nil
			m.loading = true
			return m, runBatch(m.client)
		case "Health":
			m.currentView = viewHealth
			m.loading = true
			return m, fetchHealth(m.client)
		}
	case viewTypes:
		if selected, ok := m.typeList.SelectedItem().(item); ok {
			m.selectedType = selected.title
			m.currentView = viewOverrides
			m.textInput.SetValue("")
			m.textInput.Focus()
		}
	case viewOverrides:
		m.textInput.Blur()
		m.loading = true
		var req *Requirements
		if spec := strings.TrimSpace(m.textInput.Value()); spec != "" {
			req = &Requirements{Specialization: spec}
		}
		return m, generateAgent(m.client, m.selectedType, req)
	}
	return m, nil
}

// View renders the UI
func (m Model) View() string {
	var body string
	switch m.currentView {
	case viewMain:
		return docStyle.Render(m.mainMenu.View())
	case viewTemplates:
		body = titleStyle.Render("Agent Templates") + "\n\n" + m.templateTable.View()
	case viewTypes:
		body = m.typeList.View()
	case viewOverrides:
		body = titleStyle.Render("Generate "+m.selectedType) + "\n\n" + m.textInput.View() +
			"\n\nPress 'enter' to generate, 'esc' to cancel"
	case viewAgent:
		body = agentView(m.lastAgent)
	case viewDeploy:
		body = titleStyle.Render("Deployment") + "\n\n" + deploymentView(m.deployment, m.deployNote)
	case viewBatch:
		body = titleStyle.Render("Batch Demo") + "\n\n" + batchView(m.batch)
	case viewHealth:
		body = titleStyle.Render("Health") + "\n\n" + healthView(m.health)
	default:
		return "Loading..."
	}

	if m.loading {
		body += "\n\n" + m.spinner.View() + " Working..."
	}
	if m.error != "" {
		body += "\n\n" + errorStyle.Render(m.error)
	}
	return docStyle.Render(body + "\n\nPress 'esc' to return to the main menu")
}

// Custom message types for the tea.Model
type templatesMsg struct {
	templates *TemplateList
}

type agentMsg struct {
	agent *Agent
}

type deployMsg struct {
	deployment *Deployment
	message    string
}

type batchMsg struct {
	batch *BatchResponse
}

type healthMsg struct {
	health *Health
}

type errorMsg struct {
	err string
}

func fetchTemplates(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		templates, err := client.GetTemplates()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching templates: %v", err)}
		}
		return templatesMsg{templates: templates}
	}
}

func generateAgent(client *ApiClient, agentType string, req *Requirements) tea.Cmd {
	return func() tea.Msg {
		agent, err := client.GenerateAgent(agentType, req)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error generating agent: %v", err)}
		}
		return agentMsg{agent: agent}
	}
}

func deployAgent(client *ApiClient, agent *Agent) tea.Cmd {
	return func() tea.Msg {
		deployment, message, err := client.DeployAgent(agent)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error deploying agent: %v", err)}
		}
		return deployMsg{deployment: deployment, message: message}
	}
}

// runBatch requests one agent of every catalog type.
func runBatch(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		templates, err := client.GetTemplates()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching templates: %v", err)}
		}
		specs := make([]Specification, 0, len(templates.Templates))
		for _, t := range sortedTypes(templates) {
			specs = append(specs, Specification{Type: t})
		}
		batch, err := client.BatchGenerate(specs)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error running batch: %v", err)}
		}
		return batchMsg{batch: batch}
	}
}

func fetchHealth(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		health, err := client.CheckHealth()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("API server at %s is not available: %v", client.BaseURL, err)}
		}
		return healthMsg{health: health}
	}
}

func sortedTypes(tl *TemplateList) []string {
	types := make([]string, 0, len(tl.Templates))
	for t := range tl.Templates {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func templateRows(tl *TemplateList) []table.Row {
	var rows []table.Row
	for _, t := range sortedTypes(tl) {
		tmpl := tl.Templates[t]
		rows = append(rows, table.Row{t, tmpl.Name, tmpl.Role, tmpl.Specialization})
	}
	return rows
}

func typeItems(tl *TemplateList) []list.Item {
	var items []list.Item
	for _, t := range sortedTypes(tl) {
		tmpl := tl.Templates[t]
		items = append(items, item{title: t, desc: fmt.Sprintf("%s - %s", tmpl.Name, tmpl.Specialization)})
	}
	return items
}

func lastSuccessful(batch *BatchResponse) *Agent {
	for i := len(batch.Results) - 1; i >= 0; i-- {
		r := batch.Results[i]
		if r.Status != "success" {
			continue
		}
		if agent, err := decodeAgent(r.Agent); err == nil {
			return agent
		}
	}
	return nil
}

func agentView(agent *Agent) string {
	if agent == nil {
		return "No agent"
	}
	view := titleStyle.Render(agent.Name) + "\n\n"
	view += fmt.Sprintf("ID: %s\n", agent.ID)
	view += fmt.Sprintf("Type: %s\n", agent.TemplateType)
	view += fmt.Sprintf("Role: %s\n", agent.Role)
	view += fmt.Sprintf("Specialization: %s\n", agent.Specialization)
	view += fmt.Sprintf("Status: %s\n", agent.Status)
	view += fmt.Sprintf("Content: %s\n\n", agent.Profile.Generation)
	view += agent.Profile.Description + "\n\nCapabilities:\n"
	for _, c := range agent.Profile.Capabilities {
		view += "• " + c + "\n"
	}
	return view + "\n" + infoStyle.Render("Choose 'Deploy Last Agent' from the menu to deploy it")
}

func deploymentView(d *Deployment, message string) string {
	if d == nil {
		return ""
	}
	view := successStyle.Render(message) + "\n\n"
	view += fmt.Sprintf("Endpoint: %s\n", d.EndpointURL)
	view += fmt.Sprintf("Dashboard: %s\n\nAPI endpoints:\n", d.ManagementDashboard)
	names := make([]string, 0, len(d.APIEndpoints))
	for name := range d.APIEndpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		view += fmt.Sprintf("• %-12s %s\n", name, d.APIEndpoints[name])
	}
	return view
}

func batchView(b *BatchResponse) string {
	if b == nil {
		return ""
	}
	view := infoStyle.Render(fmt.Sprintf("Batch %s: %d/%d succeeded", b.Summary.BatchID, b.Summary.Successful, b.Summary.TotalRequested)) + "\n\n"
	for i, r := range b.Results {
		if r.Status != "success" {
			view += fmt.Sprintf("%d. %s\n", i+1, errorStyle.Render(r.Error))
			continue
		}
		var a struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		_ = json.Unmarshal(r.Agent, &a)
		view += fmt.Sprintf("%d. %s (%s)\n", i+1, a.Name, a.ID)
	}
	return view
}

func healthView(h *Health) string {
	if h == nil {
		return ""
	}
	view := successStyle.Render(h.Status) + "\n\n"
	view += fmt.Sprintf("Version: %s\n", h.Version)
	view += fmt.Sprintf("Uptime: %s\n", h.Uptime)
	view += fmt.Sprintf("Provider: %s\n", h.GenerationProvider)
	view += fmt.Sprintf("Templates: %s\n", strings.Join(h.AvailableTemplates, ", "))
	view += fmt.Sprintf("Registry: %t\n", h.RegistryEnabled)
	view += fmt.Sprintf("Event clients: %d\n\nStats:\n", h.EventClients)

	keys := make([]string, 0, len(h.Stats))
	for k := range h.Stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		view += fmt.Sprintf("• %s: %v\n", k, h.Stats[k])
	}
	return view
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v", err)
		os.Exit(1)
	}
}
