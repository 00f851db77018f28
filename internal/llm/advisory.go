// Meeting advisory: per-agent speak and vote requests, and strict decoding
// of the replies. Anything that does not match the expected shape is
// discarded and the caller keeps its heuristic.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when a reply does not match the expected shape.
var ErrMalformed = errors.New("malformed advisory reply")

const systemPrompt = "You are an agent in a social deduction game aboard a space station. " +
	"Return strict JSON only. Players can lie and doubt others."

// Task names the advisory step.
type Task string

const (
	TaskSpeak Task = "speak"
	TaskVote  Task = "vote"
)

// Self describes the requesting agent.
type Self struct {
	Name      string             `json:"name"`
	Role      string             `json:"role"`
	Trait     string             `json:"personality,omitempty"`
	Memory    []string           `json:"memory"`
	Route     []string           `json:"route,omitempty"`
	Suspicion map[string]float64 `json:"suspicion,omitempty"`
}

// MeetingContext is what a speaker knows about the meeting.
type MeetingContext struct {
	Reason string   `json:"reason"`
	Body   *string  `json:"body"`
	Alive  []string `json:"alive"`
}

// StatementView is one statement as shown to a voter.
type StatementView struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Request is the JSON payload sent as the user message.
type Request struct {
	Task       Task            `json:"task"`
	You        Self            `json:"you"`
	Meeting    *MeetingContext `json:"meeting,omitempty"`
	Statements []StatementView `json:"statements,omitempty"`
	Out        map[string]any  `json:"out"`
}

// SpeakRequest builds a statement request.
func SpeakRequest(self Self, meeting MeetingContext) Request {
	return Request{
		Task:    TaskSpeak,
		You:     self,
		Meeting: &meeting,
		Out:     map[string]any{"statement": "string"},
	}
}

// VoteRequest builds a vote request.
func VoteRequest(self Self, statements []StatementView) Request {
	return Request{
		Task:       TaskVote,
		You:        self,
		Statements: statements,
		Out:        map[string]any{"vote": "name_or_skip", "believed": []string{"names"}},
	}
}

// Advise sends req on behalf of agent and returns the raw reply text.
func (c *Client) Advise(ctx context.Context, agent string, req Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal advisory request: %w", err)
	}
	return c.Complete(ctx, agent, systemPrompt, string(payload))
}

// SpeakAdvice is a validated statement reply.
type SpeakAdvice struct {
	Statement string
}

// VoteAdvice is a validated vote reply. Vote is an agent name unless Skip.
type VoteAdvice struct {
	Vote     string
	Skip     bool
	Believed []string
}

// DecodeSpeak validates a statement reply. ok is false for anything other
// than an object with a non-empty string "statement".
func DecodeSpeak(raw string) (SpeakAdvice, bool) {
	fields, err := objectFields(raw)
	if err != nil {
		return SpeakAdvice{}, false
	}
	var statement string
	if err := decodeField(fields, "statement", &statement); err != nil {
		return SpeakAdvice{}, false
	}
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return SpeakAdvice{}, false
	}
	return SpeakAdvice{Statement: statement}, true
}

// DecodeVote validates a vote reply: a string "vote" (a name or "skip") and
// an optional "believed" list of strings.
func DecodeVote(raw string) (VoteAdvice, bool) {
	fields, err := objectFields(raw)
	if err != nil {
		return VoteAdvice{}, false
	}

	var vote string
	if err := decodeField(fields, "vote", &vote); err != nil {
		return VoteAdvice{}, false
	}
	vote = strings.TrimSpace(vote)
	if vote == "" {
		return VoteAdvice{}, false
	}

	advice := VoteAdvice{Vote: vote, Skip: strings.EqualFold(vote, "skip")}
	if _, ok := fields["believed"]; ok {
		if err := decodeField(fields, "believed", &advice.Believed); err != nil {
			return VoteAdvice{}, false
		}
	}
	return advice, true
}

// objectFields extracts the JSON object from a reply (models sometimes wrap
// it in prose or code fences) and splits it into raw fields.
func objectFields(raw string) (map[string]json.RawMessage, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object: %w", ErrMalformed)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &fields); err != nil {
		return nil, fmt.Errorf("parse object: %w", errors.Join(ErrMalformed, err))
	}
	return fields, nil
}

func decodeField(fields map[string]json.RawMessage, name string, dst any) error {
	rawField, ok := fields[name]
	if !ok || string(rawField) == "null" {
		return fmt.Errorf("missing %q: %w", name, ErrMalformed)
	}
	if err := json.Unmarshal(rawField, dst); err != nil {
		return fmt.Errorf("field %q: %w", name, errors.Join(ErrMalformed, err))
	}
	return nil
}
