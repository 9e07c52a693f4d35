// Package google bootstraps OAuth2 authorization for the Gmail API.
//
// The client secrets ("credentials.json", as downloaded from the Google Cloud
// console) and the user's token ("token.json") live in an auth directory. On
// startup the Authorizer loads the saved token, refreshes it once when it has
// expired, or runs the installed-app authorization flow when there is no
// refresh token: it prints an authorization URL, reads the verification code
// from the terminal and exchanges it. Every new token is written back to the
// token file, including refreshes that happen later during a long run.
package google
