package moxfield

import "github.com/Granipouss/mtg-collection-pipe/internal/auth"

// NewLogin returns the browser login for Moxfield. The token never reaches
// local storage, so it is read from the Authorization header the web app
// sends to its API after signing in.
func NewLogin(browser *auth.Browser, creds auth.Credentials, signInURL, apiURL string) *auth.HeaderLogin {
	return &auth.HeaderLogin{
		Browser:     browser,
		Credentials: creds,
		Form: auth.LoginForm{
			URL:              signInURL,
			UsernameSelector: "#username",
			PasswordSelector: "#password",
		},
		ReadySelector: ".deckbox",
		Header:        "Authorization",
		URLPrefix:     apiURL,
	}
}
