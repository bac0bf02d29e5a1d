package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

const (
	discordAuthURL  = "https://discord.com/oauth2/authorize"
	discordTokenURL = "https://discord.com/api/oauth2/token"
	discordAPIURL   = "https://discord.com/api"
)

var ErrMissingCode = errors.New("missing authorization code")

// User is the Discord account behind a login.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// DiscordConfig configures the OAuth application and the optional guild join.
// Empty URLs fall back to Discord's public endpoints.
type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	GuildID      string
	BotToken     string

	AuthURL  string
	TokenURL string
	APIURL   string
}

// DiscordProvider logs users in with Discord's OAuth2 code flow.
type DiscordProvider struct {
	oauth    *oauth2.Config
	api      *resty.Client
	guildID  string
	botToken string
	logger   *slog.Logger
}

// NewDiscordProvider creates a provider for cfg
func NewDiscordProvider(cfg DiscordConfig, logger *slog.Logger) *DiscordProvider {
	authURL := orDefault(cfg.AuthURL, discordAuthURL)
	tokenURL := orDefault(cfg.TokenURL, discordTokenURL)
	apiURL := strings.TrimRight(orDefault(cfg.APIURL, discordAPIURL), "/")

	return &DiscordProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify", "guilds.join"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		api: resty.New().
			SetBaseURL(apiURL).
			SetTimeout(10 * time.Second),
		guildID:  cfg.GuildID,
		botToken: cfg.BotToken,
		logger:   logger,
	}
}

// AuthCodeURL returns the consent page URL carrying state.
func (p *DiscordProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades code for the logged in user. When a guild is configured the
// user is also added to it; failing to do so does not fail the login.
func (p *DiscordProvider) Exchange(ctx context.Context, code string) (*User, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("discord code exchange failed: %w", err)
	}

	var user User
	resp, err := p.api.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(&user).
		Get("/users/@me")
	if err != nil {
		return nil, fmt.Errorf("discord user request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("discord user request returned %d", resp.StatusCode())
	}
	if user.ID == "" {
		return nil, errors.New("discord returned a user without id")
	}

	if p.guildID != "" && p.botToken != "" {
		p.joinGuild(ctx, &user, token.AccessToken)
	}
	return &user, nil
}

func (p *DiscordProvider) joinGuild(ctx context.Context, user *User, accessToken string) {
	resp, err := p.api.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bot "+p.botToken).
		SetPathParams(map[string]string{"guild": p.guildID, "user": user.ID}).
		SetBody(map[string]string{"access_token": accessToken}).
		Put("/guilds/{guild}/members/{user}")
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to add user to guild", "user_id", user.ID, "error", err)
		return
	}
	if resp.IsError() {
		p.logger.WarnContext(ctx, "Discord refused guild join", "user_id", user.ID, "status", resp.StatusCode())
		return
	}
	p.logger.DebugContext(ctx, "User added to guild", "user_id", user.ID, "guild_id", p.guildID)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
