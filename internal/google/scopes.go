package google

import gmail "google.golang.org/api/gmail/v1"

// DefaultOAuthScopes are the scopes requested during authorization.
// Downloading attachments only needs read access to the mailbox.
var DefaultOAuthScopes = []string{
	gmail.GmailReadonlyScope,
}

// RedirectURL is the loopback redirect registered for installed apps. The
// browser lands on it after consent and the code is copied from its query.
const RedirectURL = "http://localhost"

// ConsentPrompt forces the account chooser and the consent screen so Google
// always returns a refresh token.
const ConsentPrompt = "select_account consent"
