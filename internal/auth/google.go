// Package auth implements the Google OAuth login flow. The callback upserts
// the user row and redirects back to the UI with a signed JWT in the query
// string; everything after that goes through the Authorization header.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "manuscript-backend/internal/shared/auth"
	"manuscript-backend/internal/shared/server/respond"
	"manuscript-backend/internal/shared/telemetry"
	"manuscript-backend/internal/users"
)

const (
	stateTTL        = 5 * time.Minute
	userInfoURL     = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleIDPrefix  = "google:"
	scopeEmail      = "https://www.googleapis.com/auth/userinfo.email"
	scopeProfile    = "https://www.googleapis.com/auth/userinfo.profile"
)

// GoogleService handles the OAuth start and callback endpoints.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	states      *stateStore
	userSvc     *users.Service
}

// NewGoogleService builds a GoogleService.
func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, userSvc *users.Service) *GoogleService {
	return &GoogleService{
		userSvc: userSvc,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{scopeEmail, scopeProfile},
			Endpoint:     google.Endpoint,
		},
		uiRedirect: uiRedirect,
		states:     newStateStore(stateTTL),
	}
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) start(c *gin.Context) {
	if s.oauthConfig.ClientID == "" || s.oauthConfig.ClientSecret == "" || s.oauthConfig.RedirectURL == "" {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}

	state := uuid.NewString()
	s.states.issue(state)

	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline))
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}

	if !s.states.consume(state) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	userInfo, err := s.fetchUserInfo(ctx, token)
	if err != nil || userInfo.Sub == "" {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	userID := googleIDPrefix + userInfo.Sub
	s.upsertUser(ctx, userID, userInfo)

	jwt, err := sharedauth.SignJWT(sharedauth.Claims{
		Sub:     userID,
		Email:   userInfo.Email,
		Name:    userInfo.Name,
		Picture: userInfo.Picture,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	redirectURL, err := appendToken(s.uiRedirect, jwt)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}

	c.Redirect(http.StatusFound, redirectURL)
}

// upsertUser records the profile so manuscripts and audits have an owner
// row to hang off. A failed upsert does not block login; the JWT alone is
// enough to use the API.
func (s *GoogleService) upsertUser(ctx context.Context, userID string, info googleUserInfo) {
	if s.userSvc == nil {
		return
	}
	err := s.userSvc.UpsertFromAuth(ctx, users.User{
		ID:         userID,
		Email:      info.Email,
		FullName:   info.Name,
		PictureURL: info.Picture,
	})
	if err != nil {
		telemetry.Error("auth.user_upsert_failed", map[string]any{"error": err.Error()})
	}
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get(userInfoURL)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}

	// Some responses use "id" instead of "sub".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	return info, nil
}

// stateStore tracks outstanding OAuth states. Expiry is delegated to
// go-cache; the mutex makes consume a single-use check so a state cannot
// be replayed.
type stateStore struct {
	cache *gocache.Cache
	mu    sync.Mutex
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{cache: gocache.New(ttl, 2*ttl)}
}

func (s *stateStore) issue(state string) {
	s.cache.SetDefault(state, struct{}{})
}

func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache.Get(state); !ok {
		return false
	}
	s.cache.Delete(state)
	return true
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
