package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"

	"tableside/internal/cart"
	"tableside/internal/llm"
	"tableside/internal/models"
	"tableside/internal/monitoring"
	"tableside/internal/order"
	"tableside/internal/tools"
)

// TurnRequest is one customer message. MessageID is optional; a client that
// retries a turn with the same id gets its tool calls deduplicated.
type TurnRequest struct {
	Text      string `json:"text"`
	MessageID string `json:"messageId,omitempty"`
}

// Driver runs turns for any session against a shared model and menu
type Driver struct {
	model   llm.Model
	menu    *models.Menu
	cart    *cart.Aggregator
	orders  *order.Builder
	system  string
	tools   []llms.Tool
	monitor *monitoring.Monitor
	log     *logrus.Logger
}

// NewDriver creates a turn driver
func NewDriver(model llm.Model, menu *models.Menu, agg *cart.Aggregator, orders *order.Builder, system string, monitor *monitoring.Monitor, log *logrus.Logger) *Driver {
	return &Driver{
		model:   model,
		menu:    menu,
		cart:    agg,
		orders:  orders,
		system:  system,
		tools:   tools.Definitions(),
		monitor: monitor,
		log:     log,
	}
}

// Menu returns the catalog the driver serves
func (d *Driver) Menu() *models.Menu {
	return d.menu
}

// Aggregator returns the cart arithmetic used for every session
func (d *Driver) Aggregator() *cart.Aggregator {
	return d.cart
}

// Turn sends text to the model and streams the resulting events. Blank text
// returns models.ErrEmptyInput without calling the model; a session already in
// a turn returns models.ErrTurnInProgress. The channel is closed after the
// settled event.
func (d *Driver) Turn(ctx context.Context, s *Session, req TurnRequest) (<-chan Event, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, models.ErrEmptyInput
	}

	history, err := s.begin(time.Now())
	if err != nil {
		return nil, err
	}

	messageID := strings.TrimSpace(req.MessageID)
	if messageID == "" {
		messageID = uuid.NewString()
	}
	t := &turn{
		id:        uuid.NewString(),
		messageID: messageID,
		session:   s,
		text:      text,
		started:   time.Now(),
		out:       make(chan Event, 64),
	}
	t.log = d.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"turn_id":    t.id,
		"message_id": messageID,
	})

	go d.run(ctx, t, history)
	return t.out, nil
}

// turn is the state of one in-flight turn
type turn struct {
	id        string
	messageID string
	session   *Session
	text      string
	started   time.Time
	out       chan Event
	log       *logrus.Entry

	reply   strings.Builder
	calls   []llm.ToolCall
	results []llm.ToolResult
}

func (d *Driver) run(ctx context.Context, t *turn, history []llm.Message) {
	defer close(t.out)

	outcome, fallback := d.stream(ctx, t, history)

	t.session.settle(t.messages(fallback), time.Now())
	elapsed := time.Since(t.started)
	d.monitor.RecordTurn(string(outcome), elapsed)
	t.log.WithFields(logrus.Fields{
		"outcome":    outcome,
		"tool_calls": len(t.calls),
		"elapsed":    elapsed.String(),
	}).Info("turn settled")

	t.final(ctx, Event{Kind: EventSettled, Outcome: outcome, Text: fallback})
}

// stream consumes model chunks in order until the stream ends, fails or ctx
// is cancelled
func (d *Driver) stream(ctx context.Context, t *turn, history []llm.Message) (Outcome, string) {
	chunks, err := d.model.Stream(ctx, llm.Request{
		System:   d.system,
		History:  history,
		UserText: t.text,
		Tools:    d.tools,
	})
	if err != nil {
		return d.failure(ctx, t, err)
	}

	for {
		select {
		case <-ctx.Done():
			return Cancelled, ""
		case c, ok := <-chunks:
			if !ok {
				if ctx.Err() != nil {
					return Cancelled, ""
				}
				return Completed, ""
			}
			t.session.streaming()

			switch {
			case c.Err != nil:
				return d.failure(ctx, t, c.Err)
			case c.ToolCall != nil:
				d.handleCall(ctx, t, *c.ToolCall)
			case c.Final:
				return Completed, ""
			case c.Text != "":
				t.reply.WriteString(c.Text)
				t.emit(ctx, Event{Kind: EventText, Text: c.Text})
			}
		}
	}
}

func (d *Driver) failure(ctx context.Context, t *turn, err error) (Outcome, string) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return Cancelled, ""
	}
	t.log.WithError(err).Error("model stream failed")
	return Failed, ApologyReply
}

func (d *Driver) handleCall(ctx context.Context, t *turn, call llm.ToolCall) {
	if call.ID == "" {
		call.ID = "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}

	a := d.Apply(t.session, t.messageID, call.ID, call.Name, []byte(call.Arguments))

	t.calls = append(t.calls, call)
	t.results = append(t.results, llm.ToolResult{CallID: call.ID, Name: call.Name, Content: a.Content()})
	for _, ev := range a.Events() {
		t.emit(ctx, ev)
	}
}

func (t *turn) emit(ctx context.Context, ev Event) {
	ev.TurnID = t.id
	select {
	case t.out <- ev:
	case <-ctx.Done():
	}
}

// final delivers the settled event. A cancelled consumer may have stopped
// reading, so the send only blocks while ctx is live.
func (t *turn) final(ctx context.Context, ev Event) {
	ev.TurnID = t.id
	if ctx.Err() == nil {
		t.out <- ev
		return
	}
	select {
	case t.out <- ev:
	default:
	}
}

// messages is what the turn adds to the history. Every tool call is paired
// with a tool response, rejected ones included.
func (t *turn) messages(fallback string) []llm.Message {
	msgs := []llm.Message{{Role: llm.RoleUser, Text: t.text}}

	reply := t.reply.String()
	if reply == "" {
		reply = fallback
	}
	if reply != "" || len(t.calls) > 0 {
		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Text: reply, ToolCalls: t.calls})
	}
	if len(t.results) > 0 {
		msgs = append(msgs, llm.Message{Role: llm.RoleTool, ToolResults: t.results})
	}
	return msgs
}

// Applied is what happened to one tool invocation
type Applied struct {
	Tool         tools.Name
	Invocation   tools.Invocation
	Admitted     bool
	Result       interface{}
	Cart         *models.CartState
	Confirmation *models.OrderConfirmation
	Err          error
}

// Apply runs a raw tool call through decoding, the session ledger and the
// cart or order builder. It is used for model tool calls and for invocations
// mirrored by the storefront.
func (d *Driver) Apply(s *Session, messageID, callID, toolName string, raw []byte) Applied {
	log := d.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"message_id": messageID,
		"tool":       toolName,
	})

	inv, err := tools.Decode(messageID, callID, toolName, raw)
	if err != nil {
		log.WithError(err).Warn("tool invocation rejected")
		d.monitor.RecordTool(metricTool(toolName), monitoring.ToolRejected)
		return Applied{Tool: tools.Name(toolName), Err: err}
	}
	log = log.WithField("invocation_id", inv.ID)
	a := Applied{Tool: inv.Tool, Invocation: inv}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	if !s.ledger.Admit(inv.ID) {
		log.Info("duplicate tool invocation dropped")
		d.monitor.RecordTool(string(inv.Tool), monitoring.ToolDuplicate)
		return a
	}
	a.Admitted = true

	switch args := inv.Args.(type) {
	case tools.AddToCartArgs:
		s.cart, _ = d.cart.Apply(s.cart, inv)
		snapshot := s.cart.Clone()
		a.Cart = &snapshot
		a.Result = args

	case tools.ConfirmOrderArgs:
		conf, err := d.orders.Confirm(s.cart, args.TableNumber)
		if err != nil {
			log.WithError(err).Warn("order confirmation rejected")
			d.monitor.RecordTool(string(inv.Tool), monitoring.ToolRejected)
			a.Err = err
			return a
		}
		s.confirmation = conf
		a.Confirmation = conf
		a.Result = conf

		drift := order.Drift(conf, order.Claimed{Subtotal: args.Subtotal, Tax: args.Tax, Total: args.Total})
		if len(drift) > 0 {
			log.WithFields(logrus.Fields{
				"fields":        drift,
				"claimed_total": args.Total.String(),
				"total":         conf.Total.String(),
			}).Warn("model order totals differ from cart")
		}
		d.monitor.RecordConfirmation(len(drift) > 0)

	case tools.SearchMenuArgs:
		a.Result = d.search(args.Query)

	default:
		a.Result = args
	}

	d.monitor.RecordTool(string(inv.Tool), monitoring.ToolAdmitted)
	return a
}

func (d *Driver) search(query string) interface{} {
	if cat, ok := d.menu.Category(query); ok {
		return CategoryResult{Category: cat.Name, Items: cat.Items}
	}
	hits := d.menu.Search(query)
	if hits == nil {
		hits = []models.MenuHit{}
	}
	return SearchResults{Results: hits}
}

// Events renders the invocation for the client
func (a Applied) Events() []Event {
	base := Event{Tool: a.Tool, InvocationID: a.Invocation.ID}

	switch {
	case a.Err != nil:
		ev := base
		ev.Kind = EventToolRejected
		ev.Error = a.Err.Error()
		events := []Event{ev}
		if errors.Is(a.Err, models.ErrEmptyOrder) {
			events = append(events, Event{Kind: EventNotice, Tool: a.Tool, Text: EmptyOrderReply})
		}
		return events

	case !a.Admitted:
		ev := base
		ev.Kind = EventToolDuplicate
		return []Event{ev}
	}

	ev := base
	ev.Kind = EventToolResult
	ev.Result = a.Result
	events := []Event{ev}
	if a.Cart != nil {
		events = append(events, Event{Kind: EventCart, Tool: a.Tool, InvocationID: a.Invocation.ID, Cart: a.Cart})
	}
	if a.Confirmation != nil {
		events = append(events, Event{Kind: EventConfirmation, Tool: a.Tool, InvocationID: a.Invocation.ID, Confirmation: a.Confirmation})
	}
	return events
}

// Content is the tool response recorded in the history for the model
func (a Applied) Content() string {
	var v interface{}
	switch {
	case a.Err != nil:
		v = map[string]interface{}{"error": a.Err.Error()}
	case !a.Admitted:
		v = map[string]interface{}{"duplicate": true, "note": "already applied"}
	default:
		v = a.Result
	}
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":"result could not be encoded"}`
	}
	return string(data)
}

func metricTool(name string) string {
	if tools.Known(tools.Name(name)) {
		return name
	}
	return "unknown"
}
