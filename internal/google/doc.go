// Package google handles the OAuth2 installed-app flow for the Gmail
// mailbox: building the consent URL, exchanging the code, and keeping the
// token on disk so later runs can refresh it without user interaction.
//
// Tokens are stored as JSON under the user cache directory
// (~/.cache/emailagent/google-<account>.token on Linux) with 0600 permissions.
package google
