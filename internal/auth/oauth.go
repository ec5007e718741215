package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sraza0098/wisp-backend/internal/domain"
)

// Identity is what an OAuth provider vouches for.
type Identity struct {
	Email     string
	FirstName string
	LastName  string
	Picture   string
}

// Verifier checks a provider credential and returns the verified identity.
type Verifier interface {
	Provider() string
	Verify(ctx context.Context, credential string) (*Identity, error)
}

const oauthTimeout = 10 * time.Second

// GoogleVerifier validates ID tokens with Google's tokeninfo endpoint.
type GoogleVerifier struct {
	clientID string
	baseURL  string
}

func NewGoogleVerifier(clientID, baseURL string) *GoogleVerifier {
	if baseURL == "" {
		baseURL = "https://oauth2.googleapis.com"
	}
	return &GoogleVerifier{clientID: clientID, baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *GoogleVerifier) Provider() string { return domain.OAuthGoogle }

func (g *GoogleVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	if idToken == "" {
		return nil, ErrOAuthRejected
	}
	var info struct {
		Aud           string `json:"aud"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
	}
	if err := getJSON(ctx, g.baseURL+"/tokeninfo?id_token="+url.QueryEscape(idToken), &info); err != nil {
		return nil, err
	}
	if g.clientID != "" && info.Aud != g.clientID {
		return nil, fmt.Errorf("%w: audience mismatch", ErrOAuthRejected)
	}
	if info.Email == "" || info.EmailVerified != "true" {
		return nil, fmt.Errorf("%w: email not verified", ErrOAuthRejected)
	}
	return &Identity{
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
		Picture:   info.Picture,
	}, nil
}

// FacebookVerifier validates user access tokens with the Graph API.
type FacebookVerifier struct {
	appID   string
	baseURL string
}

func NewFacebookVerifier(appID, baseURL string) *FacebookVerifier {
	if baseURL == "" {
		baseURL = "https://graph.facebook.com"
	}
	return &FacebookVerifier{appID: appID, baseURL: strings.TrimRight(baseURL, "/")}
}

func (f *FacebookVerifier) Provider() string { return domain.OAuthFacebook }

func (f *FacebookVerifier) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	if accessToken == "" {
		return nil, ErrOAuthRejected
	}
	tok := url.QueryEscape(accessToken)

	if f.appID != "" {
		var app struct {
			ID string `json:"id"`
		}
		if err := getJSON(ctx, f.baseURL+"/app?access_token="+tok, &app); err != nil {
			return nil, err
		}
		if app.ID != f.appID {
			return nil, fmt.Errorf("%w: token issued for another app", ErrOAuthRejected)
		}
	}

	var me struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Picture   struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := getJSON(ctx, f.baseURL+"/me?fields=email,first_name,last_name,picture&access_token="+tok, &me); err != nil {
		return nil, err
	}
	if me.Email == "" {
		return nil, fmt.Errorf("%w: no email granted", ErrOAuthRejected)
	}
	return &Identity{
		Email:     me.Email,
		FirstName: me.FirstName,
		LastName:  me.LastName,
		Picture:   me.Picture.Data.URL,
	}, nil
}

// getJSON issues a GET with the fiber client and decodes a 200 response into v.
func getJSON(ctx context.Context, rawURL string, v any) error {
	timeout := oauthTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	a := fiber.Get(rawURL).Timeout(timeout)
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("oauth request: %w", errs[0])
	}
	if code != fiber.StatusOK {
		return fmt.Errorf("%w: provider answered %d", ErrOAuthRejected, code)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("oauth response: %w", err)
	}
	return nil
}
