package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/blisslabs/consulting-reservations/internal/domain"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

type IdentityClient struct {
	baseURL string
	http    *http.Client
}

func NewIdentityClient(baseURL string) *IdentityClient {
	return &IdentityClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

type userResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// CurrentUser resolves the bearer token to a user. Unauthenticated tokens map
// to domain.ErrAuthRequired; payment work must not start without a resolved
// identity.
func (c *IdentityClient) CurrentUser(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrAuthRequired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/users/me", nil)
	if err != nil {
		return domain.User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return domain.User{}, domain.ErrAuthRequired
	}
	if resp.StatusCode != http.StatusOK {
		return domain.User{}, errors.Newf("identity provider: status %d", resp.StatusCode)
	}

	var ur userResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return domain.User{}, err
	}
	id, err := uuid.Parse(ur.UserID)
	if err != nil {
		return domain.User{}, errors.Wrap(err, "identity provider returned malformed user id")
	}

	return domain.User{ID: id, Name: ur.Name, Email: ur.Email}, nil
}
