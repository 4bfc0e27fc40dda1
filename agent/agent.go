// Package agent is the demo orchestration layer over the hybrid memory
// engine. It logs conversation turns into episodic memory, retrieves context
// around a small tool-calling rule engine, and generates answers through an
// injected LLM (a deterministic offline stub by default).
package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/principia-agentica/hybrid-memory-talk/internal/metrics"
	"github.com/principia-agentica/hybrid-memory-talk/memory"
	"github.com/principia-agentica/hybrid-memory-talk/tracing"
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// resetIntentTokens are the trigger words for the password-reset rule,
// English and Spanish as in the demo corpus.
var resetIntentTokens = []string{"reset", "recuper", "forgot", "olvid"}

// Plan is the rule engine's decision: which tool to call, if any.
type Plan struct {
	Tool  string
	Email string
}

// Config configures an Agent.
type Config struct {
	TaskID  string
	Session string
}

// Agent wires the retriever, the episodic log, the mock account tools, the
// tracer and the LLM into one question-answering loop.
type Agent struct {
	retriever *memory.HybridRetriever
	episodic  *memory.EpisodicStore
	accounts  *AccountService
	llm       LLM
	tracer    *tracing.Tracer
	collector *metrics.Collector
	stub      StubLLM

	taskID  string
	session string
	logger  *zap.Logger
}

// New creates an agent. llm, tracer and collector may be nil: a nil llm uses
// the offline stub, nil tracer and collector disable those concerns.
func New(
	retriever *memory.HybridRetriever,
	episodic *memory.EpisodicStore,
	accounts *AccountService,
	llm LLM,
	tracer *tracing.Tracer,
	collector *metrics.Collector,
	cfg Config,
	logger *zap.Logger,
) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if accounts == nil {
		accounts = NewAccountService()
	}
	taskID := cfg.TaskID
	if taskID == "" {
		taskID = "task_" + uuid.NewString()[:8]
	}
	return &Agent{
		retriever: retriever,
		episodic:  episodic,
		accounts:  accounts,
		llm:       llm,
		tracer:    tracer,
		collector: collector,
		taskID:    taskID,
		session:   cfg.Session,
		logger:    logger.With(zap.String("component", "agent")),
	}
}

// NoteEvent appends an arbitrary caller event to episodic memory.
func (a *Agent) NoteEvent(event *memory.Event) error {
	return a.log(event)
}

// Answer runs one question through the loop: log the user turn, retrieve,
// maybe call a tool, retrieve again (now including tool results), generate
// the answer, log the assistant turn, and trace the whole exchange.
func (a *Agent) Answer(ctx context.Context, question string) (string, error) {
	if err := a.log(a.userTurn(question)); err != nil {
		return "", err
	}

	sid := a.tracer.StartSpan("retrieve", question)
	ctx1, err := a.retriever.Retrieve(ctx, question)
	a.tracer.EndSpan(sid, ctx1, "")
	if err != nil {
		return "", err
	}

	if plan := a.orchestrate(question); plan.Tool != "" {
		if err := a.executePlan(plan); err != nil {
			return "", err
		}
	}

	sid2 := a.tracer.StartSpan("retrieve", question)
	ctx2, err := a.retriever.Retrieve(ctx, question)
	a.tracer.EndSpan(sid2, ctx2, "")
	if err != nil {
		return "", err
	}

	var answer string
	if a.llm != nil {
		answer, err = a.llm.Generate(ctx, BuildPrompt(ctx2, question))
		if err != nil {
			return "", err
		}
	} else {
		answer = a.stub.Answer(ctx2, question)
	}

	if err := a.log(a.assistantTurn(answer)); err != nil {
		return "", err
	}
	a.tracer.Record("qa", question, ctx2, answer)
	return answer, nil
}

// orchestrate applies the password-reset rule: a reset intent plus an email
// in the question triggers a lookup, and a verified user escalates to an
// actual reset.
func (a *Agent) orchestrate(question string) Plan {
	q := strings.ToLower(question)
	wantsReset := false
	for _, tok := range resetIntentTokens {
		if strings.Contains(q, tok) {
			wantsReset = true
			break
		}
	}
	email := emailPattern.FindString(question)
	if !wantsReset || email == "" {
		return Plan{}
	}
	info := a.accounts.LookupUser(email)
	if !info.Exists || !info.Verified {
		return Plan{Tool: "lookup_user", Email: email}
	}
	return Plan{Tool: "reset_password", Email: email}
}

// executePlan runs the planned tool and logs both the call and its result.
func (a *Agent) executePlan(plan Plan) error {
	if err := a.log(a.toolCall(plan.Tool, plan.Email)); err != nil {
		return err
	}

	var ok bool
	var summary string
	switch plan.Tool {
	case "lookup_user":
		info := a.accounts.LookupUser(plan.Email)
		ok = info.Exists
		summary = fmt.Sprintf("lookup_user -> exists=%t status=%s verified=%t", info.Exists, info.Status, info.Verified)
	case "reset_password":
		res := a.accounts.ResetPassword(plan.Email)
		ok = res.OK
		if res.OK {
			summary = fmt.Sprintf("reset_password -> ok token=%s", res.Token)
		} else {
			summary = fmt.Sprintf("reset_password -> failed reason=%s", res.Reason)
		}
	default:
		ok = false
		summary = fmt.Sprintf("%s -> unknown_tool", plan.Tool)
	}

	if a.collector != nil {
		a.collector.RecordToolCall(plan.Tool, ok)
	}
	a.logger.Debug("tool executed",
		zap.String("tool", plan.Tool),
		zap.Bool("ok", ok))
	return a.log(a.toolResult(plan.Tool, summary, ok))
}

func (a *Agent) log(event *memory.Event) error {
	if err := a.episodic.Log(event); err != nil {
		return err
	}
	if a.collector != nil {
		a.collector.RecordEventLogged()
	}
	return nil
}

func (a *Agent) userTurn(text string) *memory.Event {
	return &memory.Event{
		TaskID:  a.taskID,
		Session: a.session,
		Type:    "user_turn",
		Text:    text,
	}
}

func (a *Agent) assistantTurn(text string) *memory.Event {
	return &memory.Event{
		TaskID:  a.taskID,
		Session: a.session,
		Type:    "assistant_turn",
		Text:    text,
	}
}

func (a *Agent) toolCall(tool, email string) *memory.Event {
	return &memory.Event{
		TaskID: a.taskID,
		Type:   "tool_call",
		Text:   fmt.Sprintf("%s(%s)", tool, email),
		Extra:  map[string]any{"tool": tool, "email": email},
	}
}

func (a *Agent) toolResult(tool, summary string, ok bool) *memory.Event {
	return &memory.Event{
		TaskID: a.taskID,
		Type:   "tool_result",
		Text:   summary,
		Extra:  map[string]any{"tool": tool, "ok": ok},
	}
}
