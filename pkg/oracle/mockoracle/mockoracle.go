// Package mockoracle is a deterministic Chat Completions backend for tests
// and local runs without a real model.
//
// Replies depend only on the request:
//
//   - "My name is X." is greeted by name.
//   - Keywords (job, policy, news, complain, search) trigger calls to the
//     matching capabilities, several at once when several match.
//   - After capability results, the results are echoed back as the answer.
//   - "simulate outage" yields 503, "shredder" calls an undeclared tool and
//     "loop forever" keeps deferring.
package mockoracle

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rhuss/servicedesk/pkg/oracle/openaicompat"
)

// Model is reported when the request names none.
const Model = "mock-model"

// Fallback is the answer when no rule matches.
const Fallback = "I can help with job openings, company policy, company news and grievances."

// ResultPrefix starts every answer built from capability results.
const ResultPrefix = "Here is what I found: "

type rule struct {
	keywords []string
	tool     string
	args     func(user, name string) map[string]any
}

var rules = []rule{
	{
		keywords: []string{"job", "opening", "vacanc"},
		tool:     "search-internal-openings",
		args: func(user, _ string) map[string]any {
			return map[string]any{"title-substring": titleIn(user)}
		},
	},
	{
		keywords: []string{"policy", "policies", "leave"},
		tool:     "get-policy",
		args:     func(user, _ string) map[string]any { return map[string]any{"topic": user} },
	},
	{
		keywords: []string{"news", "announcement"},
		tool:     "get-company-news",
		args:     func(user, _ string) map[string]any { return map[string]any{"topic": user} },
	},
	{
		keywords: []string{"complain", "grievance", "harass"},
		tool:     "log-grievance",
		args: func(user, name string) map[string]any {
			return map[string]any{"complainant": name, "accused": "unnamed colleague", "description": user}
		},
	},
	{
		keywords: []string{"search outside", "external"},
		tool:     "search-external-opportunities",
		args:     func(user, _ string) map[string]any { return map[string]any{"query": user} },
	},
}

// NewHandler returns the mock backend's routes.
func NewHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req openaicompat.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid request: "+err.Error())
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "messages must not be empty")
		return
	}

	user := lastUserText(req.Messages)
	lower := strings.ToLower(user)
	if strings.Contains(lower, "simulate outage") {
		writeError(w, http.StatusServiceUnavailable, "server_error", "backend overloaded")
		return
	}

	msg := respond(&req, user)
	model := req.Model
	if model == "" {
		model = Model
	}
	finish := "stop"
	if len(msg.ToolCalls) > 0 {
		finish = "tool_calls"
	}

	slog.Debug("mock oracle reply", "tool_calls", len(msg.ToolCalls), "messages", len(req.Messages))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openaicompat.ChatCompletionResponse{
		ID:     fmt.Sprintf("chatcmpl-mock-%d", len(req.Messages)),
		Object: "chat.completion",
		Model:  model,
		Choices: []openaicompat.ChatChoice{
			{Index: 0, Message: msg, FinishReason: finish},
		},
		Usage: &openaicompat.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	})
}

func respond(req *openaicompat.ChatCompletionRequest, user string) openaicompat.ChatMessage {
	lower := strings.ToLower(user)
	last := req.Messages[len(req.Messages)-1]

	if last.Role == "tool" {
		if strings.Contains(lower, "loop forever") {
			return toolCalls(len(req.Messages), callFor(req, "get-company-news", map[string]any{"topic": user}))
		}
		return text(ResultPrefix + strings.Join(resultsSinceAssistant(req.Messages), "\n"))
	}

	if name, ok := strings.CutPrefix(user, "My name is "); ok {
		return text(fmt.Sprintf("Hello %s! How can I help you today?", strings.TrimSuffix(name, ".")))
	}

	if strings.Contains(lower, "shredder") {
		return toolCalls(len(req.Messages), &openaicompat.ChatToolCall{
			Type:     "function",
			Function: openaicompat.ChatFunctionCall{Name: "shred-documents", Arguments: "{}"},
		})
	}
	if strings.Contains(lower, "loop forever") {
		return toolCalls(len(req.Messages), callFor(req, "get-company-news", map[string]any{"topic": user}))
	}

	name := speakerName(req.Messages)
	var calls []*openaicompat.ChatToolCall
	for _, rl := range rules {
		if !containsAny(lower, rl.keywords) {
			continue
		}
		if c := callFor(req, rl.tool, rl.args(user, name)); c != nil {
			calls = append(calls, c)
		}
	}
	if len(calls) > 0 {
		return toolCalls(len(req.Messages), calls...)
	}
	return text(Fallback)
}

// callFor builds a call to tool if the request declares it.
func callFor(req *openaicompat.ChatCompletionRequest, tool string, args map[string]any) *openaicompat.ChatToolCall {
	for _, t := range req.Tools {
		if t.Function.Name != tool {
			continue
		}
		data, _ := json.Marshal(args)
		return &openaicompat.ChatToolCall{
			Type:     "function",
			Function: openaicompat.ChatFunctionCall{Name: tool, Arguments: string(data)},
		}
	}
	return nil
}

func toolCalls(seq int, calls ...*openaicompat.ChatToolCall) openaicompat.ChatMessage {
	msg := openaicompat.ChatMessage{Role: "assistant"}
	for i, c := range calls {
		if c == nil {
			continue
		}
		c.ID = fmt.Sprintf("call_%d_%d", seq, i)
		msg.ToolCalls = append(msg.ToolCalls, *c)
	}
	if len(msg.ToolCalls) == 0 {
		return text(Fallback)
	}
	return msg
}

func text(s string) openaicompat.ChatMessage {
	return openaicompat.ChatMessage{Role: "assistant", Content: s}
}

func writeError(w http.ResponseWriter, status int, typ, msg string) {
	var resp openaicompat.ChatErrorResponse
	resp.Error.Type = typ
	resp.Error.Message = msg
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func lastUserText(msgs []openaicompat.ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return contentText(msgs[i].Content)
		}
	}
	return ""
}

// speakerName is the name from the first introduction, or "anonymous".
func speakerName(msgs []openaicompat.ChatMessage) string {
	for _, m := range msgs {
		if m.Role != "user" {
			continue
		}
		if name, ok := strings.CutPrefix(contentText(m.Content), "My name is "); ok {
			return strings.TrimSuffix(name, ".")
		}
	}
	return "anonymous"
}

func resultsSinceAssistant(msgs []openaicompat.ChatMessage) []string {
	var out []string
	for i := len(msgs) - 1; i >= 0 && msgs[i].Role == "tool"; i-- {
		out = append([]string{contentText(msgs[i].Content)}, out...)
	}
	return out
}

func contentText(c any) string {
	switch v := c.(type) {
	case string:
		return v
	case []any:
		var parts []string
		for _, p := range v {
			if m, ok := p.(map[string]any); ok {
				if s, ok := m["text"].(string); ok {
					parts = append(parts, s)
				}
			}
		}
		return strings.Join(parts, "")
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// titleIn picks the word after "for", as in "openings for engineers".
func titleIn(user string) string {
	_, after, ok := strings.Cut(strings.ToLower(user), " for ")
	if !ok {
		return ""
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimRight(fields[0], "s?.!,")
}
