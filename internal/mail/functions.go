package mail

import (
	"context"

	"github.com/quillmail/quill/internal/registry"
)

// RegisterFunctions exposes the mailbox to the model through the
// function registry.
func RegisterFunctions(reg *registry.Registry, mb Mailbox) error {
	if err := reg.Register(registry.Definition{
		Name:        "search_mail",
		Description: "Search the user's mailbox. Supported queries: 'FROM addr', 'SUBJECT text', 'UNSEEN', 'SEEN', or free text.",
		Parameters: map[string]registry.Param{
			"query": {Type: "string", Description: "search query"},
			"limit": {Type: "integer", Description: "maximum results, default 10"},
		},
		Required: []string{"query"},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		limit := 0
		if v, ok := args["limit"].(float64); ok {
			limit = int(v)
		}
		results, err := mb.Search(ctx, args["query"].(string), limit)
		if err != nil {
			return nil, err
		}
		if results == nil {
			results = []Summary{}
		}
		return results, nil
	}); err != nil {
		return err
	}

	if err := reg.Register(registry.Definition{
		Name:        "read_mail",
		Description: "Read the full content of a message found by search_mail.",
		Parameters: map[string]registry.Param{
			"id": {Type: "string", Description: "message id from a search result"},
		},
		Required: []string{"id"},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return mb.Read(ctx, args["id"].(string))
	}); err != nil {
		return err
	}

	return reg.Register(registry.Definition{
		Name:        "list_mailboxes",
		Description: "List the folders in the user's mail account.",
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return mb.Mailboxes(ctx)
	})
}
