// Package tools implements the closed set of email tools the agent can call
// and the registry that dispatches to them.
//
// Every tool has a stable name and a parameter schema expressed as an
// mcp.Tool, so the same definitions are advertised to the completion
// provider and served over MCP by the serve command.
//
// Tools:
//   - fetch_unread: list messages from the live mailbox
//   - search_emails: structured search over the local index
//   - update_labels: add or remove labels on indexed emails (the only write)
//   - conversation_history: everything exchanged with one correspondent
//   - search_attachments: search extracted attachment text
//
// Failures are typed: ErrUnknownTool, ErrBadParams (as *ParamsError),
// ErrTimeout and ErrUpstream, which wraps the store or mailbox cause.
package tools
