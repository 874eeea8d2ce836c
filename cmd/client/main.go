// Command client is the mirror-image caller for the api-server: it acquires
// a bearer token from a workload-identity source and invokes the protected
// endpoint with it.
//
// Two sources are tried in order, mimicking a credential chain:
//
//  1. Managed-identity metadata endpoint (IMDS-style GET with the Metadata
//     header), when running on a platform that provides one.
//  2. OAuth2 client-credentials grant, using CLIENT_ID/CLIENT_SECRET and the
//     issuer's token endpoint.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/clientcredentials"
)

const defaultIMDSEndpoint = "http://169.254.169.254/metadata/identity/oauth2/token"

func main() {
	log := logrus.New()
	_ = godotenv.Load()

	apiURL := os.Getenv("API_URL")
	resource := os.Getenv("RESOURCE")
	if apiURL == "" || resource == "" {
		log.Fatal("API_URL and RESOURCE must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := acquireToken(ctx, resource)
	if err != nil {
		log.WithError(err).Fatal("acquire token")
	}
	log.Debug("token acquired")

	body, status, err := callAPI(ctx, apiURL, token)
	if err != nil {
		log.WithError(err).Fatal("call api")
	}
	log.WithField("status", status).Info("api response")
	fmt.Println(body)
}

// acquireToken walks the credential chain: managed identity first, then the
// client-credentials grant.
func acquireToken(ctx context.Context, resource string) (string, error) {
	tok, miErr := managedIdentityToken(ctx, resource)
	if miErr == nil {
		return tok, nil
	}
	tok, ccErr := clientCredentialsToken(ctx, resource)
	if ccErr == nil {
		return tok, nil
	}
	return "", fmt.Errorf("no credential source succeeded: managed identity: %v; client credentials: %w", miErr, ccErr)
}

type imdsTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
	Resource    string `json:"resource"`
	TokenType   string `json:"token_type"`
}

// managedIdentityToken asks the instance metadata service for a token. The
// endpoint can be overridden with IDENTITY_ENDPOINT for non-default
// platforms.
func managedIdentityToken(ctx context.Context, resource string) (string, error) {
	endpoint := os.Getenv("IDENTITY_ENDPOINT")
	if endpoint == "" {
		endpoint = defaultIMDSEndpoint
	}
	q := url.Values{}
	q.Set("api-version", "2018-02-01")
	q.Set("resource", resource)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Metadata", "true")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata endpoint returned %s", resp.Status)
	}
	var tr imdsTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode metadata response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("metadata response missing access_token")
	}
	return tr.AccessToken, nil
}

// clientCredentialsToken runs the OAuth2 client-credentials grant against
// TOKEN_URL (or the tenant's token endpoint derived from TENANT_ID).
func clientCredentialsToken(ctx context.Context, resource string) (string, error) {
	clientID := os.Getenv("CLIENT_ID")
	clientSecret := os.Getenv("CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return "", errors.New("CLIENT_ID and CLIENT_SECRET not set")
	}
	tokenURL := os.Getenv("TOKEN_URL")
	if tokenURL == "" {
		tenant := os.Getenv("TENANT_ID")
		if tenant == "" {
			return "", errors.New("TOKEN_URL or TENANT_ID must be set")
		}
		tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenant)
	}
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{scopeFor(resource)},
	}
	tok, err := cc.Token(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// scopeFor maps a resource identifier to a client-credentials scope
// (resource/.default per the identity-platform convention).
func scopeFor(resource string) string {
	if strings.HasSuffix(resource, "/.default") {
		return resource
	}
	return strings.TrimRight(resource, "/") + "/.default"
}

func callAPI(ctx context.Context, apiURL, token string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}
