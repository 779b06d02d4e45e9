package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/oracle"
)

// toContents converts a transcript into Gemini contents. System turns are
// folded into the system instruction, which always starts with
// oracle.Instructions. Consecutive capability results share one content.
func toContents(turns []api.Turn) ([]*genai.Content, string) {
	system := []string{oracle.Instructions}
	var contents []*genai.Content

	var results *genai.Content
	flush := func() {
		if results != nil {
			contents = append(contents, results)
			results = nil
		}
	}

	for _, t := range turns {
		switch t.Role {
		case api.RoleSystem:
			system = append(system, t.Content)

		case api.RoleUser:
			flush()
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))

		case api.RoleAssistant:
			flush()
			var parts []*genai.Part
			if t.Content != "" {
				parts = append(parts, genai.NewPartFromText(t.Content))
			}
			for _, req := range t.Requests {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   req.ID,
					Name: req.Name,
					Args: req.Arguments,
				}})
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}

		case api.RoleCapabilityResult:
			key := "output"
			if t.IsError {
				key = "error"
			}
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       t.RequestID,
				Name:     t.Name,
				Response: map[string]any{key: t.Content},
			}}
			if results == nil {
				results = genai.NewContentFromParts(nil, genai.RoleUser)
			}
			results.Parts = append(results.Parts, part)
		}
	}
	flush()

	return contents, strings.Join(system, "\n\n")
}

// toTools converts declarations into one Gemini tool. Returns nil when
// there are none.
func toTools(decls []capability.Declaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}
	fns := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		fd := &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
		}
		if raw, err := d.ParametersJSON(); err == nil {
			fd.ParametersJsonSchema = json.RawMessage(raw)
		}
		fns = append(fns, fd)
	}
	return []*genai.Tool{{FunctionDeclarations: fns}}
}

// fromResponse maps the first candidate to Final or Defer.
func fromResponse(resp *genai.GenerateContentResponse) (oracle.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: response has no candidates")
	}

	var text strings.Builder
	var reqs []api.CapabilityRequest
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil {
			continue
		}
		if p.FunctionCall != nil {
			id := p.FunctionCall.ID
			if id == "" {
				id = api.NewRequestID()
			}
			args := p.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			reqs = append(reqs, api.CapabilityRequest{ID: id, Name: p.FunctionCall.Name, Arguments: args})
			continue
		}
		if p.Text != "" && !p.Thought {
			text.WriteString(p.Text)
		}
	}

	if len(reqs) > 0 {
		return oracle.Defer{Text: text.String(), Requests: reqs}, nil
	}
	return oracle.Final{Text: text.String()}, nil
}
