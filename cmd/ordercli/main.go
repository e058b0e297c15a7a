package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tableside/internal/models"
	"tableside/internal/session"
)

// Styling
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2E6F95")).
			Padding(0, 1)

	waiterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0a84ff"))
	guestStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8E8E93"))
	noteStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#FF9F0A"))

	cartStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#30d158")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)
)

type connectedMsg struct {
	welcome session.Welcome
	events  <-chan session.Event
}

type eventMsg session.Event

type closedMsg struct{}

type errMsg struct{ err error }

// Model defines the chat client state
type Model struct {
	client       *ApiClient
	events       <-chan session.Event
	restaurant   string
	input        textinput.Model
	spinner      spinner.Model
	transcript   []string
	reply        string
	cart         *models.CartState
	confirmation *models.OrderConfirmation
	waiting      bool
	err          error
}

func initialModel(client *ApiClient) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "What would you like?"
	ti.Focus()
	ti.CharLimit = 280
	ti.Width = 60

	return Model{client: client, input: ti, spinner: s, waiting: true}
}

func connect(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		welcome, err := client.CreateSession()
		if err != nil {
			return errMsg{err}
		}
		events, err := client.Connect()
		if err != nil {
			return errMsg{err}
		}
		return connectedMsg{welcome: welcome, events: events}
	}
}

func waitForEvent(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

func send(client *ApiClient, text string) tea.Cmd {
	return func() tea.Msg {
		if err := client.Send(text); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, connect(m.client))
}

// Update handles UI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.client.Close()
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.waiting || m.events == nil {
				return m, nil
			}
			m.input.SetValue("")
			m.transcript = append(m.transcript, guestStyle.Render("you: "+text))
			m.waiting = true
			return m, send(m.client, text)
		}

	case connectedMsg:
		m.events = msg.events
		m.restaurant = msg.welcome.Restaurant
		m.waiting = false
		m.transcript = append(m.transcript, waiterStyle.Render("waiter: "+msg.welcome.Greeting))
		if len(msg.welcome.Prompts) > 0 {
			m.transcript = append(m.transcript, noteStyle.Render("try: "+strings.Join(msg.welcome.Prompts, " · ")))
		}
		return m, waitForEvent(m.events)

	case eventMsg:
		m.apply(session.Event(msg))
		return m, waitForEvent(m.events)

	case closedMsg:
		m.err = fmt.Errorf("connection closed")
		m.waiting = false
		return m, nil

	case errMsg:
		m.err = msg.err
		m.waiting = false
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// apply folds one server event into the view state
func (m *Model) apply(ev session.Event) {
	switch ev.Kind {
	case session.EventText:
		m.reply += ev.Text
	case session.EventCart:
		m.cart = ev.Cart
	case session.EventConfirmation:
		m.confirmation = ev.Confirmation
	case session.EventNotice:
		m.flushReply()
		m.transcript = append(m.transcript, noteStyle.Render(ev.Text))
		if ev.TurnID == "" {
			m.waiting = false
		}
	case session.EventSettled:
		if m.reply == "" {
			m.reply = ev.Text
		}
		m.flushReply()
		m.waiting = false
	case "error":
		m.transcript = append(m.transcript, errorStyle.Render(ev.Error))
		m.waiting = false
	}
}

func (m *Model) flushReply() {
	if m.reply == "" {
		return
	}
	m.transcript = append(m.transcript, waiterStyle.Render("waiter: "+m.reply))
	m.reply = ""
}

// View renders the UI
func (m Model) View() string {
	var b strings.Builder

	title := "Tableside"
	if m.restaurant != "" {
		title = m.restaurant
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")

	for _, line := range m.transcript {
		b.WriteString(line + "\n")
	}
	if m.reply != "" {
		b.WriteString(waiterStyle.Render("waiter: "+m.reply) + "\n")
	}
	b.WriteString("\n")

	if m.cart != nil && !m.cart.IsEmpty() {
		b.WriteString(cartStyle.Render(renderCart(*m.cart)) + "\n")
	}
	if m.confirmation != nil {
		b.WriteString(cartStyle.Render(renderConfirmation(m.confirmation)) + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}

	if m.waiting {
		b.WriteString(m.spinner.View() + " ")
	}
	b.WriteString(m.input.View() + "\n")
	b.WriteString(guestStyle.Render("enter to send · esc to quit"))

	return docStyle.Render(b.String())
}

func renderCart(c models.CartState) string {
	var b strings.Builder
	b.WriteString("Cart\n")
	for _, l := range c.Lines {
		fmt.Fprintf(&b, "%d x %s", l.Quantity, l.ItemName)
		if len(l.Modifications) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(l.Modifications, ", "))
		}
		fmt.Fprintf(&b, "  $%s\n", l.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "Subtotal $%s  Tax $%s  Total $%s", c.Subtotal.StringFixed(2), c.Tax.StringFixed(2), c.Total.StringFixed(2))
	return b.String()
}

func renderConfirmation(conf *models.OrderConfirmation) string {
	return fmt.Sprintf("Order confirmed for table %d\n%d items  Total $%s",
		conf.TableNumber, len(conf.Lines), conf.Total.StringFixed(2))
}

func main() {
	var baseURL string

	root := &cobra.Command{
		Use:   "ordercli",
		Short: "Order from the tableside waiter in your terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := tea.NewProgram(initialModel(NewApiClient(baseURL)), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}

	defaultURL := os.Getenv("TABLESIDE_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	root.Flags().StringVar(&baseURL, "url", defaultURL, "Base URL of the tableside API")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
