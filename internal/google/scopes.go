package google

import gmail "google.golang.org/api/gmail/v1"

// Scopes are the OAuth scopes requested from the mailbox owner. Label
// changes are kept in the local index, so read access is enough.
var Scopes = []string{
	gmail.GmailReadonlyScope,
}
