// Package bulletin provides the get-policy and get-company-news
// capabilities. Both return their whole record set as JSON; the topic
// argument is accepted but does not filter.
package bulletin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/storage"
)

// Capability names the oracle sees.
const (
	PolicyName = "get-policy"
	NewsName   = "get-company-news"
)

// NewPolicy returns get-policy backed by policies.
func NewPolicy(policies storage.RecordSet) capability.Capability {
	return newDump(PolicyName, "Provide company policy to people seeking out opportunities", "looking up company policy", policies)
}

// NewNews returns get-company-news backed by news.
func NewNews(news storage.RecordSet) capability.Capability {
	return newDump(NewsName, "Provide the latest news about the company's activities", "looking up company news", news)
}

func newDump(name, description, logMsg string, rs storage.RecordSet) capability.Capability {
	return capability.New(capability.Declaration{
		Name:        name,
		Description: description,
		Parameters: capability.ObjectSchema([]string{"topic"}, map[string]*jsonschema.Schema{
			"topic": capability.StringProperty("What the user is asking about"),
		}),
	}, func(ctx context.Context, args map[string]any) (string, error) {
		slog.Info(logMsg, "topic", capability.StringArg(args, "topic"))

		records, err := rs.ReadAll(ctx)
		if err != nil {
			return "", err
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding %s records: %w", name, err)
		}
		return string(data), nil
	})
}
