// Package agent runs conversations: it keeps the append-only conversation
// log of each session and drives the completion provider and the tool
// registry until a turn reaches an answer or exhausts its tool budget.
//
// A turn moves through these states:
//
//	AwaitingUserInput -> RequestingCompletion -> Responded
//	                          ^        |
//	                          |        v
//	                          ExecutingTool -> Exhausted (budget spent)
//
// Tool failures are recorded in the conversation and handed back to the
// model. Completion failures and an unavailable email store end the turn
// with a short degraded reply; the session stays usable.
package agent
