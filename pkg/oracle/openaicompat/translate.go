package openaicompat

import (
	"encoding/json"
	"fmt"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/oracle"
)

// TranslateToChat converts a transcript and the capability declarations
// into a ChatCompletionRequest. The system instructions always come first.
func TranslateToChat(model string, temperature *float64, turns []api.Turn, decls []capability.Declaration) (ChatCompletionRequest, error) {
	cr := ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		N:           1,
		Messages:    make([]ChatMessage, 0, len(turns)+1),
	}

	cr.Messages = append(cr.Messages, ChatMessage{Role: "system", Content: oracle.Instructions})

	for _, t := range turns {
		switch t.Role {
		case api.RoleSystem:
			cr.Messages = append(cr.Messages, ChatMessage{Role: "system", Content: t.Content})

		case api.RoleUser:
			cr.Messages = append(cr.Messages, ChatMessage{Role: "user", Content: t.Content})

		case api.RoleAssistant:
			cm := ChatMessage{Role: "assistant"}
			if t.Content != "" {
				cm.Content = t.Content
			}
			for _, req := range t.Requests {
				args, err := encodeArguments(req.Arguments)
				if err != nil {
					return cr, fmt.Errorf("encoding arguments of %s: %w", req.Name, err)
				}
				cm.ToolCalls = append(cm.ToolCalls, ChatToolCall{
					ID:   req.ID,
					Type: "function",
					Function: ChatFunctionCall{
						Name:      req.Name,
						Arguments: args,
					},
				})
			}
			cr.Messages = append(cr.Messages, cm)

		case api.RoleCapabilityResult:
			content := t.Content
			if t.IsError {
				content = "Error: " + content
			}
			cr.Messages = append(cr.Messages, ChatMessage{
				Role:       "tool",
				Content:    content,
				ToolCallID: t.RequestID,
			})
		}
	}

	for _, d := range decls {
		params, err := d.ParametersJSON()
		if err != nil {
			return cr, err
		}
		cr.Tools = append(cr.Tools, ChatTool{
			Type: "function",
			Function: ChatFunctionDef{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}

	return cr, nil
}

func encodeArguments(args map[string]any) (string, error) {
	if len(args) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// TranslateResponse converts choices[0] of a ChatCompletionResponse into an
// oracle response: tool calls become Defer, anything else Final.
func TranslateResponse(resp *ChatCompletionResponse) (oracle.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, &ProtocolError{Msg: "no choices"}
	}

	msg := resp.Choices[0].Message
	text := ExtractContentString(msg.Content)

	if len(msg.ToolCalls) == 0 {
		return oracle.Final{Text: text}, nil
	}

	reqs := make([]api.CapabilityRequest, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == "" {
			return nil, &ProtocolError{Msg: "tool call without a function name"}
		}
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, &ProtocolError{Msg: fmt.Sprintf("arguments of %s are not a JSON object: %v", tc.Function.Name, err)}
			}
		}
		id := tc.ID
		if id == "" {
			id = api.NewRequestID()
		}
		reqs = append(reqs, api.CapabilityRequest{ID: id, Name: tc.Function.Name, Arguments: args})
	}

	return oracle.Defer{Text: text, Requests: reqs}, nil
}

// ExtractContentString returns message content when it is a plain string.
func ExtractContentString(content any) string {
	if s, ok := content.(string); ok {
		return s
	}
	return ""
}
