package imapmail

import (
	"strings"
	"time"

	"github.com/emersion/go-imap"
)

// Criteria translates a Gmail style query into IMAP SEARCH criteria.
// Unknown operators are searched as plain text. now anchors newer_than:.
func Criteria(query string, now time.Time) *imap.SearchCriteria {
	c := imap.NewSearchCriteria()

	for _, tok := range strings.Fields(query) {
		key, value, hasOp := strings.Cut(tok, ":")
		if !hasOp || value == "" {
			c.Text = append(c.Text, tok)
			continue
		}

		switch strings.ToLower(key) {
		case "is":
			switch strings.ToLower(value) {
			case "unread":
				c.WithoutFlags = append(c.WithoutFlags, imap.SeenFlag)
			case "read":
				c.WithFlags = append(c.WithFlags, imap.SeenFlag)
			case "starred":
				c.WithFlags = append(c.WithFlags, imap.FlaggedFlag)
			}
		case "in", "label":
			// The selected mailbox already scopes the search.
		case "from":
			c.Header.Add("From", value)
		case "to":
			c.Header.Add("To", value)
		case "subject":
			c.Header.Add("Subject", value)
		case "after":
			if t, ok := parseQueryDate(value); ok {
				c.Since = t
			}
		case "before":
			if t, ok := parseQueryDate(value); ok {
				c.Before = t
			}
		case "newer_than":
			if d, ok := parseAge(value); ok {
				c.Since = now.Add(-d)
			}
		default:
			c.Text = append(c.Text, tok)
		}
	}

	return c
}

func parseQueryDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006/01/02", "2006-01-02", "2006/1/2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAge reads Gmail ages such as 2d, 3m or 1y.
func parseAge(s string) (time.Duration, bool) {
	if len(s) < 2 {
		return 0, false
	}
	n := 0
	for _, r := range s[:len(s)-1] {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	day := 24 * time.Hour
	switch s[len(s)-1] {
	case 'd':
		return time.Duration(n) * day, true
	case 'm':
		return time.Duration(n) * 30 * day, true
	case 'y':
		return time.Duration(n) * 365 * day, true
	}
	return 0, false
}
