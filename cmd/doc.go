// Package cmd implements the command-line interface for emailagent.
//
// This package provides the following commands:
//   - chat: Talk to the assistant in the terminal, optionally ingesting first
//   - ingest: Fetch recent mail and index it into the local store
//   - serve: Start the MCP server exposing the email tools
//   - auth: Authorize access to a Gmail account
//   - cleanup: Remove saved attachments older than a number of days
//   - generate-docs: Generate markdown documentation for all tools
//   - version: Display version information
//
// The chat command is the default command when no subcommand is specified.
package cmd
