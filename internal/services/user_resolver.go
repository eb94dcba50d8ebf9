package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/utils"
)

var (
	ErrUserNotFound         = errors.New("user not found in directory")
	ErrUserAmbiguous        = errors.New("email matches multiple directory users")
	ErrDirectoryUnavailable = errors.New("directory unavailable")
)

// ResolvedUser is a directory identity pinned to a stable object id.
type ResolvedUser struct {
	ObjectID    uuid.UUID `json:"object_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
}

type UserResolver interface {
	ResolveByEmail(ctx context.Context, email string) (*ResolvedUser, error)
}

type cachedUser struct {
	user    *ResolvedUser
	expires time.Time
}

type directoryToken struct {
	value   string
	expires time.Time
}

// directoryUserResolver looks users up in an external directory over HTTP.
// Lookups are cached for a short TTL and deduplicated across concurrent
// callers for the same email.
type directoryUserResolver struct {
	httpClient *http.Client
	baseURL    string
	tokenURL   string
	clientID   string
	secret     string
	ttl        time.Duration
	log        *logger.Logger

	mu    sync.Mutex
	cache map[string]cachedUser
	token directoryToken
	group singleflight.Group
}

func NewDirectoryUserResolver(log *logger.Logger) UserResolver {
	resolverLog := log.With("service", "DirectoryUserResolver")
	ttlSeconds := utils.GetEnvAsInt("DIRECTORY_CACHE_TTL_SECONDS", 300, resolverLog)
	return &directoryUserResolver{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(utils.GetEnv("DIRECTORY_BASE_URL", "", resolverLog), "/"),
		tokenURL:   utils.GetEnv("DIRECTORY_TOKEN_URL", "", resolverLog),
		clientID:   utils.GetEnv("DIRECTORY_CLIENT_ID", "", resolverLog),
		secret:     utils.GetEnv("DIRECTORY_CLIENT_SECRET", "", resolverLog),
		ttl:        time.Duration(ttlSeconds) * time.Second,
		log:        resolverLog,
		cache:      make(map[string]cachedUser),
	}
}

func (r *directoryUserResolver) ResolveByEmail(ctx context.Context, email string) (*ResolvedUser, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" {
		return nil, ErrUserNotFound
	}
	if r.baseURL == "" {
		return nil, ErrDirectoryUnavailable
	}

	r.mu.Lock()
	if entry, ok := r.cache[key]; ok && time.Now().Before(entry.expires) {
		r.mu.Unlock()
		return entry.user, nil
	}
	r.mu.Unlock()

	result, err, _ := r.group.Do(key, func() (any, error) {
		user, err := r.lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[key] = cachedUser{user: user, expires: time.Now().Add(r.ttl)}
		r.mu.Unlock()
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*ResolvedUser), nil
}

type directoryUserPayload struct {
	ID          string `json:"id"`
	Mail        string `json:"mail"`
	DisplayName string `json:"displayName"`
}

type directoryListPayload struct {
	Value []directoryUserPayload `json:"value"`
}

func (r *directoryUserResolver) lookup(ctx context.Context, email string) (*ResolvedUser, error) {
	token, err := r.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	filter := url.Values{}
	filter.Set("$filter", fmt.Sprintf("mail eq '%s'", strings.ReplaceAll(email, "'", "''")))
	endpoint := r.baseURL + "/users?" + filter.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, ErrDirectoryUnavailable
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.Warn("directory lookup failed", "error", err)
		return nil, ErrDirectoryUnavailable
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		r.log.Warn("directory lookup returned non-200", "status", resp.StatusCode)
		return nil, ErrDirectoryUnavailable
	}

	var payload directoryListPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, ErrDirectoryUnavailable
	}
	switch len(payload.Value) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
	default:
		return nil, ErrUserAmbiguous
	}

	entry := payload.Value[0]
	objectID, err := uuid.Parse(entry.ID)
	if err != nil {
		return nil, ErrDirectoryUnavailable
	}
	mail := entry.Mail
	if mail == "" {
		mail = email
	}
	return &ResolvedUser{ObjectID: objectID, Email: mail, DisplayName: entry.DisplayName}, nil
}

type tokenPayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (r *directoryUserResolver) accessToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.token.value != "" && time.Now().Before(r.token.expires) {
		token := r.token.value
		r.mu.Unlock()
		return token, nil
	}
	r.mu.Unlock()

	if r.tokenURL == "" {
		return "", ErrDirectoryUnavailable
	}
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", r.clientID)
	form.Set("client_secret", r.secret)
	form.Set("scope", utils.GetEnv("DIRECTORY_SCOPE", "https://graph.microsoft.com/.default", r.log))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", ErrDirectoryUnavailable
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.Warn("directory token request failed", "error", err)
		return "", ErrDirectoryUnavailable
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		r.log.Warn("directory token request returned non-200", "status", resp.StatusCode)
		return "", ErrDirectoryUnavailable
	}

	var payload tokenPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.AccessToken == "" {
		return "", ErrDirectoryUnavailable
	}

	expiresIn := payload.ExpiresIn
	if expiresIn <= 60 {
		expiresIn = 300
	}
	r.mu.Lock()
	r.token = directoryToken{
		value:   payload.AccessToken,
		expires: time.Now().Add(time.Duration(expiresIn-30) * time.Second),
	}
	r.mu.Unlock()
	return payload.AccessToken, nil
}

// MaskEmail keeps the first character of the local part and the domain, for
// log lines that must not carry full addresses.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
