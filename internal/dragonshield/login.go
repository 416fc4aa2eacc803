package dragonshield

import "github.com/Granipouss/mtg-collection-pipe/internal/auth"

// NewLogin returns the browser login for the DragonShield portal. The web app
// keeps its access token in local storage once the folders page has loaded.
func NewLogin(browser *auth.Browser, creds auth.Credentials, loginURL, foldersURL string) *auth.LocalStorageLogin {
	return &auth.LocalStorageLogin{
		Browser:     browser,
		Credentials: creds,
		Form: auth.LoginForm{
			URL:              loginURL,
			UsernameSelector: "#Email",
			PasswordSelector: "#Password",
		},
		LandingURL:    foldersURL,
		ReadySelector: ".sprite-icon-export-default",
		StorageKey:    "access_token",
	}
}
