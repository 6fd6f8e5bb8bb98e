package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/vmyazin/planner-mcp/internal/core"
)

type fakeStore struct {
	tasks        []core.Task
	archiveFails map[string]error
	nextID       int
	completeHits int
}

func (s *fakeStore) ListActiveTasks(ctx context.Context) ([]core.Task, error) {
	var out []core.Task
	for _, t := range s.tasks {
		if !t.Archived {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateTask(ctx context.Context, text, date string, slot core.TimeSlot) (core.Task, error) {
	if strings.TrimSpace(text) == "" {
		return core.Task{}, core.ErrEmptyText
	}
	s.nextID++
	t := core.Task{ID: fmt.Sprintf("t%d", s.nextID), Text: text, Date: date, TimeSlot: slot}
	s.tasks = append(s.tasks, t)
	return t, nil
}

func (s *fakeStore) find(id string) (*core.Task, error) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return &s.tasks[i], nil
		}
	}
	return nil, core.ErrTaskNotFound
}

func (s *fakeStore) SetCompleted(ctx context.Context, id string, completed bool) error {
	t, err := s.find(id)
	if err != nil {
		return err
	}
	s.completeHits++
	t.Completed = completed
	return nil
}

func (s *fakeStore) SetArchived(ctx context.Context, id string) error {
	if err := s.archiveFails[id]; err != nil {
		return err
	}
	t, err := s.find(id)
	if err != nil {
		return err
	}
	if !t.Completed {
		return core.ErrNotCompleted
	}
	t.Archived = true
	return nil
}

func (s *fakeStore) SetTimeSlot(ctx context.Context, id string, slot core.TimeSlot) error {
	t, err := s.find(id)
	if err != nil {
		return err
	}
	t.TimeSlot = slot
	return nil
}

func (s *fakeStore) add(text string, completed bool, slot core.TimeSlot) core.Task {
	s.nextID++
	t := core.Task{ID: fmt.Sprintf("t%d", s.nextID), Text: text, Completed: completed, TimeSlot: slot}
	s.tasks = append(s.tasks, t)
	return t
}

type fakeClassifier struct {
	intent *Intent
	err    error
	calls  int
}

func (c *fakeClassifier) Classify(ctx context.Context, utterance string) (*Intent, error) {
	c.calls++
	return c.intent, c.err
}

type fakeResponder struct {
	reply   string
	context string
}

func (r *fakeResponder) Respond(ctx context.Context, utterance, convContext string) (string, error) {
	r.context = convContext
	return r.reply, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestInterpreter(store TaskStore, cls Classifier) *Interpreter {
	return NewInterpreter(store, Options{Classifier: cls, Logger: quietLogger(), Now: fixedNow})
}

func interpret(t *testing.T, in *Interpreter, store *fakeStore, utterance string) *ActionResult {
	t.Helper()
	snapshot, _ := store.ListActiveTasks(context.Background())
	return in.Interpret(context.Background(), utterance, snapshot)
}

func TestInterpret_ParserFastPathSkipsClassifier(t *testing.T) {
	store := &fakeStore{}
	cls := &fakeClassifier{err: errors.New("should not be called")}
	in := newTestInterpreter(store, cls)

	res := interpret(t, in, store, "add task for tuesday morning: dentist")
	if res == nil || !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Intent != IntentAddTask {
		t.Errorf("expected add_task intent, got %q", res.Intent)
	}
	if cls.calls != 0 {
		t.Errorf("classifier should be bypassed, called %d times", cls.calls)
	}
	if len(store.tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(store.tasks))
	}
	got := store.tasks[0]
	if got.Text != "dentist" || got.Date != "2026-10-20" || got.TimeSlot != core.SlotMorning {
		t.Errorf("unexpected task: %+v", got)
	}
}

func TestInterpret_UnqualifiedTemplateFallsThrough(t *testing.T) {
	store := &fakeStore{}
	cls := &fakeClassifier{intent: &Intent{Name: IntentHelp}}
	in := newTestInterpreter(store, cls)

	res := interpret(t, in, store, "add task for someday: learn piano")
	if cls.calls != 1 {
		t.Errorf("expected classifier call, got %d", cls.calls)
	}
	if res == nil || res.Message != HelpText {
		t.Errorf("expected help reply, got %+v", res)
	}
	if len(store.tasks) != 0 {
		t.Errorf("no task should be created, got %d", len(store.tasks))
	}
}

func TestInterpret_ClassifierFailureIsNotHandled(t *testing.T) {
	store := &fakeStore{}

	in := newTestInterpreter(store, &fakeClassifier{err: ErrClassification})
	if res := interpret(t, in, store, "what's up"); res != nil {
		t.Errorf("expected nil on classification failure, got %+v", res)
	}

	in = newTestInterpreter(store, nil)
	if res := interpret(t, in, store, "what's up"); res != nil {
		t.Errorf("expected nil without classifier, got %+v", res)
	}

	in = newTestInterpreter(store, &fakeClassifier{intent: &Intent{Name: "dance"}})
	if res := interpret(t, in, store, "let's dance"); res != nil {
		t.Errorf("expected nil for unknown intent, got %+v", res)
	}
}

func TestInterpret_AddTaskCategorizesAndResolvesDate(t *testing.T) {
	store := &fakeStore{}
	cls := &fakeClassifier{intent: &Intent{Name: IntentAddTask, Params: IntentParams{TaskText: "lunch with client", Date: "tomorrow"}}}
	in := newTestInterpreter(store, cls)

	res := interpret(t, in, store, "remind me about lunch with the client tomorrow")
	if res == nil || !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	got := store.tasks[0]
	if got.TimeSlot != core.SlotAfternoon || got.Date != "2026-10-19" {
		t.Errorf("unexpected task: %+v", got)
	}

	cls.intent = &Intent{Name: IntentAddTask}
	if res := interpret(t, in, store, "add something"); res != nil {
		t.Errorf("add_task without text should decline, got %+v", res)
	}
}

func TestInterpret_CompleteTaskRoundTrip(t *testing.T) {
	store := &fakeStore{}
	task := store.add("Pay rent", false, core.SlotNone)
	cls := &fakeClassifier{intent: &Intent{Name: IntentCompleteTask, Params: IntentParams{TaskID: task.ID}}}
	in := newTestInterpreter(store, cls)

	first := interpret(t, in, store, "done with rent")
	if first == nil || !first.Success || !strings.Contains(first.Message, "Marked") {
		t.Fatalf("unexpected first result: %+v", first)
	}

	second := interpret(t, in, store, "done with rent")
	if second == nil || !second.Success || !strings.Contains(second.Message, "already completed") {
		t.Fatalf("unexpected second result: %+v", second)
	}
	if !store.tasks[0].Completed {
		t.Error("task should stay completed after a repeated complete")
	}
	if store.completeHits != 1 {
		t.Errorf("expected a single store write, got %d", store.completeHits)
	}
}

func TestInterpret_CompleteTaskByName(t *testing.T) {
	store := &fakeStore{}
	store.add("Call mom", false, core.SlotNone)
	store.add("Call dad", false, core.SlotNone)
	store.add("Water the plants", false, core.SlotNone)
	cls := &fakeClassifier{}
	in := newTestInterpreter(store, cls)

	cls.intent = &Intent{Name: IntentCompleteTask, Params: IntentParams{TaskName: "call"}}
	res := interpret(t, in, store, "completed the call")
	if res == nil || res.Success {
		t.Fatalf("ambiguous name must not succeed, got %+v", res)
	}
	if !strings.Contains(res.Message, "Call mom") || !strings.Contains(res.Message, "Call dad") {
		t.Errorf("clarification should list both candidates: %s", res.Message)
	}

	cls.intent = &Intent{Name: IntentCompleteTask, Params: IntentParams{TaskName: "plants in the garden"}}
	res = interpret(t, in, store, "watered the plants in the garden")
	if res == nil || res.Success {
		t.Fatalf("low confidence must not auto-execute, got %+v", res)
	}
	if store.completeHits != 0 {
		t.Fatalf("no task should be completed yet, got %d writes", store.completeHits)
	}

	cls.intent = &Intent{Name: IntentCompleteTask, Params: IntentParams{TaskName: "call dad"}}
	res = interpret(t, in, store, "called dad")
	if res == nil || !res.Success {
		t.Fatalf("exact name should complete, got %+v", res)
	}
	if !store.tasks[1].Completed || store.tasks[0].Completed {
		t.Errorf("wrong task completed: %+v", store.tasks)
	}

	cls.intent = &Intent{Name: IntentCompleteTask, Params: IntentParams{TaskName: "feed a cat"}}
	res = interpret(t, in, store, "fed a cat")
	if res == nil || res.Success || !strings.Contains(res.Message, "couldn't find") {
		t.Errorf("expected not found, got %+v", res)
	}
}

func TestInterpret_CompleteTaskByNumber(t *testing.T) {
	store := &fakeStore{}
	store.add("first", false, core.SlotNone)
	store.add("done already", true, core.SlotNone)
	store.add("second", false, core.SlotNone)
	cls := &fakeClassifier{}
	in := newTestInterpreter(store, cls)

	// numbering skips completed tasks
	cls.intent = &Intent{Name: IntentCompleteTask, Params: IntentParams{TaskNumber: 2}}
	res := interpret(t, in, store, "complete #2")
	if res == nil || !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if !store.tasks[2].Completed {
		t.Errorf("expected third stored task completed: %+v", store.tasks)
	}

	cls.intent = &Intent{Name: IntentCompleteTask, Params: IntentParams{TaskNumber: 5}}
	res = interpret(t, in, store, "complete #5")
	if res == nil || res.Success {
		t.Fatalf("out of range should not succeed, got %+v", res)
	}
	if store.completeHits != 1 {
		t.Errorf("out of range must not write, got %d writes", store.completeHits)
	}

	cls.intent = &Intent{Name: IntentCompleteTask}
	if res := interpret(t, in, store, "complete it"); res != nil {
		t.Errorf("no target should decline, got %+v", res)
	}
}

func TestInterpret_PlanDayRoundRobin(t *testing.T) {
	store := &fakeStore{}
	store.add("a", false, core.SlotNone)
	store.add("b", false, core.SlotEvening)
	store.add("c", false, core.SlotNone)
	store.add("d", false, core.SlotNone)
	store.add("e", true, core.SlotNone)
	store.add("f", false, core.SlotNone)
	in := newTestInterpreter(store, &fakeClassifier{intent: &Intent{Name: IntentPlanDay}})

	res := interpret(t, in, store, "plan my day")
	if res == nil || !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}

	want := map[string]core.TimeSlot{
		"a": core.SlotMorning,
		"b": core.SlotEvening,
		"c": core.SlotAfternoon,
		"d": core.SlotEvening,
		"e": core.SlotNone,
		"f": core.SlotMorning,
	}
	for _, task := range store.tasks {
		if task.TimeSlot != want[task.Text] {
			t.Errorf("%s: slot = %q, want %q", task.Text, task.TimeSlot, want[task.Text])
		}
	}

	res = interpret(t, in, store, "plan my day")
	if res == nil || !res.Success || len(res.Tasks) != 0 {
		t.Errorf("second plan should be a no-op, got %+v", res)
	}
}

func TestInterpret_ArchiveCompletedPartialFailure(t *testing.T) {
	store := &fakeStore{archiveFails: map[string]error{}}
	store.add("open", false, core.SlotNone)
	store.add("done one", true, core.SlotNone)
	broken := store.add("done two", true, core.SlotNone)
	store.add("done three", true, core.SlotNone)
	store.archiveFails[broken.ID] = errors.New("disk full")
	in := newTestInterpreter(store, &fakeClassifier{intent: &Intent{Name: IntentArchiveCompleted}})

	res := interpret(t, in, store, "archive completed tasks")
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.Success {
		t.Error("partial failure should not report success")
	}
	if !strings.Contains(res.Message, "Archived 2 tasks.") {
		t.Errorf("expected two archived in message: %s", res.Message)
	}
	if !strings.Contains(res.Message, "Failed to archive 1 task:") || !strings.Contains(res.Message, "disk full") {
		t.Errorf("expected exactly one failure in message: %s", res.Message)
	}

	archived := 0
	for _, task := range store.tasks {
		if task.Archived {
			archived++
		}
	}
	if archived != 2 || store.tasks[0].Archived || store.tasks[2].Archived {
		t.Errorf("unexpected archive state: %+v", store.tasks)
	}
}

func TestInterpret_ReadOnlyIntents(t *testing.T) {
	store := &fakeStore{}
	store.add("Buy milk", false, core.SlotMorning)
	store.add("Pay rent", true, core.SlotNone)
	cls := &fakeClassifier{intent: &Intent{Name: IntentListTasks}}
	in := newTestInterpreter(store, cls)

	res := interpret(t, in, store, "what's on my list")
	if res == nil || !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if !strings.Contains(res.Message, "1. Buy milk in the morning") || !strings.Contains(res.Message, "- Pay rent") {
		t.Errorf("unexpected listing: %s", res.Message)
	}

	cls.intent = &Intent{Name: IntentHelp}
	if res := interpret(t, in, store, "help"); res == nil || res.Message != HelpText {
		t.Errorf("unexpected help: %+v", res)
	}
	if store.completeHits != 0 || store.tasks[0].Completed {
		t.Error("read-only intents must not mutate")
	}
}

func TestChat_FallbackAndHistory(t *testing.T) {
	store := &fakeStore{}
	store.add("Buy milk", false, core.SlotNone)
	resp := &fakeResponder{reply: "  Hello there!  "}
	in := NewInterpreter(store, Options{
		Classifier: &fakeClassifier{err: ErrClassification},
		Responder:  resp,
		History:    core.NewHistory(2),
		Logger:     quietLogger(),
		Now:        fixedNow,
	})

	reply := in.Chat(context.Background(), "hi")
	if reply.Handled || reply.Text != "Hello there!" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if !strings.Contains(resp.context, "Buy milk") || !strings.Contains(resp.context, "2026-10-18") {
		t.Errorf("context should carry date and tasks: %s", resp.context)
	}

	reply = in.Chat(context.Background(), "add task for tomorrow: buy bread")
	if !reply.Handled || reply.Action == nil || !reply.Action.Success {
		t.Fatalf("expected handled reply, got %+v", reply)
	}

	in.Chat(context.Background(), "bye")
	hist := in.History().Recent(0)
	if len(hist) != 2 || hist[0].Utterance != "add task for tomorrow: buy bread" || hist[1].Utterance != "bye" {
		t.Errorf("unexpected history: %+v", hist)
	}
	if !strings.Contains(resp.context, "user: add task for tomorrow: buy bread") {
		t.Errorf("context should carry recent turns: %s", resp.context)
	}
}

func TestChat_NoResponderGivesHint(t *testing.T) {
	in := NewInterpreter(&fakeStore{}, Options{Logger: quietLogger(), Now: fixedNow})
	reply := in.Chat(context.Background(), "hello?")
	if reply.Handled || reply.Text != fallbackHint {
		t.Errorf("expected hint, got %+v", reply)
	}
}

func TestInterpret_NoIntentLogsAtDebug(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	in := NewInterpreter(&fakeStore{}, Options{Classifier: &fakeClassifier{}, Logger: logger, Now: fixedNow})

	if res := in.Interpret(context.Background(), "how are you?", nil); res != nil {
		t.Fatalf("small talk should not be handled, got %+v", res)
	}
	for _, e := range hook.AllEntries() {
		if e.Level <= logrus.WarnLevel {
			t.Errorf("unexpected %s log: %s", e.Level, e.Message)
		}
	}
	if last := hook.LastEntry(); last == nil || last.Message != "no intent in utterance" {
		t.Errorf("expected a debug entry for the empty classification, got %+v", last)
	}
}
