package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vmyazin/planner-mcp/internal/core"
)

// IntentName coarse purpose of an utterance
type IntentName string

const (
	IntentAddTask          IntentName = "add_task"
	IntentCompleteTask     IntentName = "complete_task"
	IntentPlanDay          IntentName = "plan_day"
	IntentArchiveCompleted IntentName = "archive_completed"
	IntentListTasks        IntentName = "list_tasks"
	IntentHelp             IntentName = "help"
)

// KnownIntents fixed dispatch table keys, in prompt order
var KnownIntents = []IntentName{
	IntentAddTask, IntentCompleteTask, IntentPlanDay,
	IntentArchiveCompleted, IntentListTasks, IntentHelp,
}

var (
	ErrClassification = errors.New("intent classification failed")
	ErrInvalidIntent  = errors.New("invalid intent")
)

// Intent validated classifier output
type Intent struct {
	Name   IntentName
	Params IntentParams
}

// IntentParams typed parameter bag
type IntentParams struct {
	TaskText   string
	TaskID     string
	TaskName   string
	TaskNumber int // 1-based, 0 when absent
	Date       string
	TimeSlot   core.TimeSlot
}

// Classifier external intent classification (LLM backed, unreliable).
type Classifier interface {
	Classify(ctx context.Context, utterance string) (*Intent, error)
}

// Responder open-ended conversational fallback.
type Responder interface {
	Respond(ctx context.Context, utterance, convContext string) (string, error)
}

type rawIntent struct {
	Intent string                 `json:"intent"`
	Params map[string]interface{} `json:"params"`
}

// noIntent is the classifier's answer for small talk.
const noIntent = "none"

// ParseIntent extracts and validates the JSON object in a classifier reply.
// Only the outermost {...} is read; surrounding prose is ignored.
// An explicit {"intent": "none"} yields (nil, nil). Relative dates are checked against now.
func ParseIntent(output string, now time.Time) (*Intent, error) {
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrInvalidIntent)
	}

	var raw rawIntent
	if err := json.Unmarshal([]byte(output[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	if strings.EqualFold(strings.TrimSpace(raw.Intent), noIntent) {
		return nil, nil
	}
	return ValidateIntent(raw.Intent, raw.Params, now)
}

// ValidateIntent checks the tag and coerces the parameter bag.
func ValidateIntent(name string, params map[string]interface{}, now time.Time) (*Intent, error) {
	in := &Intent{Name: IntentName(strings.TrimSpace(strings.ToLower(name)))}
	known := false
	for _, k := range KnownIntents {
		if in.Name == k {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: unknown intent %q", ErrInvalidIntent, name)
	}

	var err error
	if in.Params.TaskText, err = stringParam(params, "taskText"); err != nil {
		return nil, err
	}
	if in.Params.TaskID, err = stringParam(params, "taskId"); err != nil {
		return nil, err
	}
	if in.Params.TaskName, err = stringParam(params, "taskName"); err != nil {
		return nil, err
	}
	if in.Params.TaskNumber, err = intParam(params, "taskNumber"); err != nil {
		return nil, err
	}
	if in.Params.Date, err = stringParam(params, "date"); err != nil {
		return nil, err
	}
	if in.Params.Date != "" {
		if _, perr := time.Parse(core.DateLayout, in.Params.Date); perr != nil {
			// relative words are resolved later by the dispatcher
			if ResolveDayTime(in.Params.Date, now).Date.IsZero() {
				return nil, fmt.Errorf("%w: bad date %q", ErrInvalidIntent, in.Params.Date)
			}
		}
	}
	slot, err := stringParam(params, "timeSlot")
	if err != nil {
		return nil, err
	}
	ts, ok := core.ParseTimeSlot(strings.ToLower(slot))
	if !ok {
		return nil, fmt.Errorf("%w: bad timeSlot %q", ErrInvalidIntent, slot)
	}
	in.Params.TimeSlot = ts

	return in, nil
}

func stringParam(params map[string]interface{}, key string) (string, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return "", nil
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), nil
	case float64:
		// ids sometimes come back as numbers
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("%w: %s must be a string", ErrInvalidIntent, key)
}

func intParam(params map[string]interface{}, key string) (int, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) || x < 0 {
			return 0, fmt.Errorf("%w: %s must be a positive integer", ErrInvalidIntent, key)
		}
		return int(x), nil
	case int:
		if x < 0 {
			return 0, fmt.Errorf("%w: %s must be a positive integer", ErrInvalidIntent, key)
		}
		return x, nil
	case string:
		s := strings.TrimPrefix(strings.TrimSpace(x), "#")
		if s == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %s must be a positive integer", ErrInvalidIntent, key)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidIntent, key)
}
