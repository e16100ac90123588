package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// Provider names as they appear in URLs and in users.provider.
const (
	ProviderGitHub = "github"
	ProviderGoogle = "google"
)

// ProviderProfile is an external identity normalised across providers.
type ProviderProfile struct {
	Provider  string `json:"provider"`
	UID       string `json:"uid"`
	Email     string `json:"email,omitempty"`
	Login     string `json:"login,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Provider runs the OAuth 2.0 authorization code flow against one identity
// provider and turns the result into a ProviderProfile.
//
// The code-for-token exchange happens server to server with the client
// secret, so the provider's access token never reaches the browser.
type Provider struct {
	name       string
	config     *oauth2.Config
	profileURL string
	// emailsURL is consulted when the profile has no public email (GitHub).
	emailsURL string
	decode    func(*json.Decoder) (*ProviderProfile, error)
}

// NewGitHubProvider configures GitHub sign-in.
// callbackURL must match the OAuth App's "Authorization callback URL".
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *Provider {
	return newGitHubProvider(clientID, clientSecret, callbackURL, github.Endpoint, "https://api.github.com")
}

// NewGitHubEnterpriseProvider configures sign-in against a GitHub
// Enterprise Server at baseURL, e.g. "https://github.example.com".
func NewGitHubEnterpriseProvider(clientID, clientSecret, callbackURL, baseURL string) *Provider {
	baseURL = strings.TrimRight(baseURL, "/")
	endpoint := oauth2.Endpoint{
		AuthURL:  baseURL + "/login/oauth/authorize",
		TokenURL: baseURL + "/login/oauth/access_token",
	}
	return newGitHubProvider(clientID, clientSecret, callbackURL, endpoint, baseURL+"/api/v3")
}

func newGitHubProvider(clientID, clientSecret, callbackURL string, endpoint oauth2.Endpoint, apiURL string) *Provider {
	return &Provider{
		name: ProviderGitHub,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoint,
		},
		profileURL: apiURL + "/user",
		emailsURL:  apiURL + "/user/emails",
		decode:     decodeGitHub,
	}
}

// NewGoogleProvider configures Google sign-in.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *Provider {
	return &Provider{
		name: ProviderGoogle,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		profileURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		decode:     decodeGoogle,
	}
}

// Name returns the provider key, e.g. "github".
func (p *Provider) Name() string {
	return p.name
}

// AuthURL returns the consent page URL. state is echoed back on the
// callback and compared against the oauth_state cookie to stop CSRF.
func (p *Provider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the user's profile.
func (p *Provider) Exchange(ctx context.Context, code string) (*ProviderProfile, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging %s OAuth code: %w", p.name, err)
	}

	// The client adds "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, tok)

	var profile *ProviderProfile
	err = getJSON(ctx, client, p.profileURL, func(dec *json.Decoder) error {
		var derr error
		profile, derr = p.decode(dec)
		return derr
	})
	if err != nil {
		return nil, fmt.Errorf("auth: fetching %s profile: %w", p.name, err)
	}
	if profile.UID == "" || profile.UID == "0" {
		return nil, fmt.Errorf("auth: %s returned a profile without an id", p.name)
	}
	profile.Provider = p.name

	if profile.Email == "" && p.emailsURL != "" {
		// A missing email is not fatal: registration asks for one.
		if email, err := primaryGitHubEmail(ctx, client, p.emailsURL); err == nil {
			profile.Email = email
		}
	}

	return profile, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, fn func(*json.Decoder) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", url, resp.StatusCode)
	}
	return fn(json.NewDecoder(resp.Body))
}

// https://docs.github.com/en/rest/users/users#get-the-authenticated-user
func decodeGitHub(dec *json.Decoder) (*ProviderProfile, error) {
	var u struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := dec.Decode(&u); err != nil {
		return nil, err
	}
	return &ProviderProfile{
		UID:       strconv.FormatInt(u.ID, 10),
		Email:     u.Email,
		Login:     u.Login,
		AvatarURL: u.AvatarURL,
	}, nil
}

func decodeGoogle(dec *json.Decoder) (*ProviderProfile, error) {
	var u struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := dec.Decode(&u); err != nil {
		return nil, err
	}
	p := &ProviderProfile{UID: u.ID, Login: u.Name, AvatarURL: u.Picture}
	if u.VerifiedEmail {
		p.Email = u.Email
	}
	return p, nil
}

func primaryGitHubEmail(ctx context.Context, client *http.Client, url string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, url, func(dec *json.Decoder) error { return dec.Decode(&emails) }); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", fmt.Errorf("no verified primary email")
}
