// Package gmail implements mailbox.Mailbox on top of the Gmail API.
//
// The client is read-only: it lists message ids for a Gmail search query,
// fetches full messages and downloads attachment bodies. Authentication uses
// the token stored by the google package.
//
// Example usage:
//
//	client, err := gmail.NewClient(ctx, google.Config{ClientID: id, ClientSecret: secret})
//	if err != nil {
//	    return err
//	}
//	ids, err := client.List(ctx, "is:unread", 10)
package gmail
