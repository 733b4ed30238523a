package builtin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/carddav"

	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// RemoteAddressBookProvider federates the address books of an upstream
// CardDAV account into this instance. Configured with an account, so it
// resolves through the container.
type RemoteAddressBookProvider struct {
	baseURL  string
	username string
	password string
	logger   *slog.Logger
}

// NewRemoteAddressBookProvider creates a provider over an upstream CardDAV account.
func NewRemoteAddressBookProvider(baseURL, username, password string, logger *slog.Logger) *RemoteAddressBookProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteAddressBookProvider{
		baseURL:  baseURL,
		username: username,
		password: password,
		logger:   logger,
	}
}

// ProviderName returns the provider's unique name.
func (p *RemoteAddressBookProvider) ProviderName() string {
	return "remote-addressbooks"
}

// AddressBooks returns the address books of the upstream account.
func (p *RemoteAddressBookProvider) AddressBooks(ctx context.Context, _ string) ([]carddav.AddressBook, error) {
	client, err := p.getClient()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find principal: %w", err)
	}

	homeSet, err := client.FindAddressBookHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to find address book home set: %w", err)
	}

	books, err := client.FindAddressBooks(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("failed to find address books: %w", err)
	}

	p.logger.Debug("federated remote address books",
		"endpoint", p.baseURL,
		"count", len(books),
	)

	return books, nil
}

func (p *RemoteAddressBookProvider) getClient() (*carddav.Client, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	client, err := carddav.NewClient(webdav.HTTPClientWithBasicAuth(httpClient, p.username, p.password), p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create carddav client: %w", err)
	}
	return client, nil
}

var _ sdk.AddressBookProvider = (*RemoteAddressBookProvider)(nil)
