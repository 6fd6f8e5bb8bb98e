package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vmyazin/planner-mcp/internal/core"
)

// TaskStore the task operations the interpreter needs.
type TaskStore interface {
	ListActiveTasks(ctx context.Context) ([]core.Task, error)
	CreateTask(ctx context.Context, text, date string, slot core.TimeSlot) (core.Task, error)
	SetCompleted(ctx context.Context, id string, completed bool) error
	SetArchived(ctx context.Context, id string) error
	SetTimeSlot(ctx context.Context, id string, slot core.TimeSlot) error
}

// ActionResult user-facing outcome of a handled utterance
type ActionResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Intent  IntentName  `json:"intent,omitempty"`
	Tasks   []core.Task `json:"tasks,omitempty"`
}

// Reply one chat turn
type Reply struct {
	Text    string        `json:"reply"`
	Handled bool          `json:"handled"`
	Action  *ActionResult `json:"action,omitempty"`
}

// Options optional collaborators of the Interpreter.
type Options struct {
	Classifier  Classifier
	Responder   Responder
	Categorizer *Categorizer
	History     *core.History
	Logger      *logrus.Logger
	Now         func() time.Time
}

// Interpreter turns utterances into task actions: template parser first, then the
// intent classifier, then the conversational fallback.
type Interpreter struct {
	store       TaskStore
	parser      *CommandParser
	categorizer *Categorizer
	classifier  Classifier
	responder   Responder
	history     *core.History
	log         *logrus.Logger
	now         func() time.Time

	mu sync.Mutex // one utterance at a time
}

// NewInterpreter wires the dispatcher; nil options get defaults.
func NewInterpreter(store TaskStore, opts Options) *Interpreter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Categorizer == nil {
		opts.Categorizer = NewCategorizer(Keywords{})
	}
	if opts.History == nil {
		opts.History = core.NewHistory(20)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Interpreter{
		store:       store,
		parser:      NewCommandParser(opts.Now),
		categorizer: opts.Categorizer,
		classifier:  opts.Classifier,
		responder:   opts.Responder,
		history:     opts.History,
		log:         opts.Logger,
		now:         opts.Now,
	}
}

// ValidateIntent validates a structured intent against the interpreter's clock.
func (in *Interpreter) ValidateIntent(name IntentName, params map[string]interface{}) (*Intent, error) {
	return ValidateIntent(string(name), params, in.now())
}

// Categorizer exposes the slot categorizer.
func (in *Interpreter) Categorizer() *Categorizer { return in.categorizer }

// Parser exposes the template parser.
func (in *Interpreter) Parser() *CommandParser { return in.parser }

// History exposes the interaction log.
func (in *Interpreter) History() *core.History { return in.history }

// Interpret handles an utterance against a task snapshot. nil means "not handled":
// the caller should fall through to conversation.
func (in *Interpreter) Interpret(ctx context.Context, utterance string, snapshot []core.Task) *ActionResult {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil
	}

	if cmd, ok := in.parser.Parse(utterance); ok && cmd.Qualified() {
		in.log.WithFields(logrus.Fields{"tier": "parser", "template": cmd.Template}).Debug("utterance matched command template")
		res := in.addTask(ctx, cmd.Text, cmd.DateString(), cmd.TimeSlot)
		res.Intent = IntentAddTask
		return res
	}

	if in.classifier == nil {
		in.log.Debug("no intent classifier configured")
		return nil
	}
	intent, err := in.classifier.Classify(ctx, utterance)
	if err != nil {
		in.log.WithError(err).Warn("intent classification failed")
		return nil
	}
	if intent == nil {
		in.log.WithField("tier", "classifier").Debug("no intent in utterance")
		return nil
	}

	entry := in.log.WithFields(logrus.Fields{"tier": "classifier", "intent": intent.Name})
	res := in.dispatch(ctx, intent, snapshot)
	if res == nil {
		entry.Debug("handler declined")
		return nil
	}
	res.Intent = intent.Name
	entry.WithField("success", res.Success).Debug("intent handled")
	return res
}

func (in *Interpreter) dispatch(ctx context.Context, intent *Intent, snapshot []core.Task) *ActionResult {
	switch intent.Name {
	case IntentAddTask:
		return in.handleAddTask(ctx, intent.Params)
	case IntentCompleteTask:
		return in.handleCompleteTask(ctx, intent.Params, snapshot)
	case IntentPlanDay:
		return in.handlePlanDay(ctx, snapshot)
	case IntentArchiveCompleted:
		return in.handleArchiveCompleted(ctx, snapshot)
	case IntentListTasks:
		return in.handleListTasks(snapshot)
	case IntentHelp:
		return &ActionResult{Success: true, Message: HelpText}
	}
	return nil
}

// Execute runs an already-classified intent against a fresh snapshot. Used by the
// structured MCP/HTTP surfaces; a nil result means the handler declined.
func (in *Interpreter) Execute(ctx context.Context, intent Intent) (*ActionResult, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	snapshot, err := in.store.ListActiveTasks(ctx)
	if err != nil {
		return nil, err
	}
	res := in.dispatch(ctx, &intent, snapshot)
	if res != nil {
		res.Intent = intent.Name
	}
	return res, nil
}

// Chat is the full conversational entry point: snapshot, interpret, fall back.
func (in *Interpreter) Chat(ctx context.Context, utterance string) Reply {
	in.mu.Lock()
	defer in.mu.Unlock()

	reply := in.chat(ctx, utterance)
	in.history.Append(core.Interaction{Utterance: utterance, Reply: reply.Text, At: in.now()})
	return reply
}

func (in *Interpreter) chat(ctx context.Context, utterance string) Reply {
	snapshot, err := in.store.ListActiveTasks(ctx)
	if err != nil {
		in.log.WithError(err).Warn("task snapshot failed")
		return Reply{Text: fmt.Sprintf("I couldn't read your tasks right now (%v).", err)}
	}

	if res := in.Interpret(ctx, utterance, snapshot); res != nil {
		return Reply{Text: res.Message, Handled: true, Action: res}
	}

	if in.responder == nil {
		return Reply{Text: fallbackHint}
	}
	text, err := in.responder.Respond(ctx, utterance, in.conversationContext(snapshot))
	if err != nil || strings.TrimSpace(text) == "" {
		in.log.WithError(err).Warn("conversational fallback failed")
		return Reply{Text: fallbackHint}
	}
	return Reply{Text: strings.TrimSpace(text)}
}

func (in *Interpreter) conversationContext(snapshot []core.Task) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Today is %s.\n", in.now().Format("Monday, 2006-01-02")))
	sb.WriteString(FormatTaskList(snapshot))
	if hist := in.history.Render(10); hist != "" {
		sb.WriteString("\nRecent conversation:\n")
		sb.WriteString(hist)
	}
	return sb.String()
}

const fallbackHint = `I'm not sure what you mean. Try "add task for tomorrow morning: call the bank", "complete call the bank" or "help".`
