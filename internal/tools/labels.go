package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/amodeus4/emailagent/internal/email"
	"github.com/amodeus4/emailagent/internal/tools/batch"
)

func updateLabelsTool(deps Deps) Tool {
	def := mcp.NewTool(UpdateLabels,
		mcp.WithDescription("Add or remove labels on indexed emails. Changes apply to the local index only."),
		mcp.WithArray("email_ids",
			mcp.Required(),
			mcp.Description("Email ID (string) or array of email IDs to update"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("add_labels",
			mcp.Description("Labels to add"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("remove_labels",
			mcp.Description("Labels to remove"),
			mcp.WithStringItems(),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)

	return Tool{
		Definition: def,
		Mutates:    true,
		Handler: func(ctx context.Context, p Params) (any, error) {
			return updateLabels(ctx, deps.Store, p)
		},
	}
}

func updateLabels(ctx context.Context, s Store, p Params) (*batch.BatchResult, error) {
	ids, err := p.Strings("email_ids")
	if err != nil {
		return nil, err
	}
	add, err := p.Strings("add_labels")
	if err != nil {
		return nil, err
	}
	remove, err := p.Strings("remove_labels")
	if err != nil {
		return nil, err
	}

	patch := email.LabelPatch{Add: add, Remove: remove}
	if patch.IsEmpty() {
		return nil, &ParamsError{Invalid: map[string]string{"add_labels": "add_labels or remove_labels must name at least one label"}}
	}

	// A missing email fails only its own entry. Any other failure leaves
	// every email unchanged.
	updates, err := s.UpdateMetadataBatch(ctx, ids, patch)
	if err != nil {
		return nil, err
	}

	results := make([]batch.Result, len(updates))
	for i, u := range updates {
		if u.Err != nil {
			results[i] = batch.NewErrorResult(u.ID, u.Err)
			continue
		}
		results[i] = batch.NewSuccessResult(u.ID, map[string]any{"labels": u.Labels})
	}

	br := batch.Summarize(results)
	return &br, nil
}
