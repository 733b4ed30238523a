package builtin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// RemoteCalendarProvider federates the calendars of an upstream CalDAV
// account (Nextcloud, Fastmail, iCloud) into this instance. Configured with
// an account, so it resolves through the container.
type RemoteCalendarProvider struct {
	baseURL  string
	username string
	password string // App-specific password for Apple
	logger   *slog.Logger
}

// NewRemoteCalendarProvider creates a provider over an upstream CalDAV account.
func NewRemoteCalendarProvider(baseURL, username, password string, logger *slog.Logger) *RemoteCalendarProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteCalendarProvider{
		baseURL:  baseURL,
		username: username,
		password: password,
		logger:   logger,
	}
}

// ProviderName returns the provider's unique name.
func (p *RemoteCalendarProvider) ProviderName() string {
	return "remote-calendars"
}

// Calendars returns the calendars of the upstream account. The local
// principal is not forwarded; the upstream account scopes what is visible.
func (p *RemoteCalendarProvider) Calendars(ctx context.Context, _ string) ([]caldav.Calendar, error) {
	client, err := p.getClient()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendars: %w", err)
	}

	p.logger.Debug("federated remote calendars",
		"endpoint", p.baseURL,
		"count", len(cals),
	)

	return cals, nil
}

func (p *RemoteCalendarProvider) getClient() (*caldav.Client, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	client, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(httpClient, p.username, p.password), p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	return client, nil
}

var _ sdk.CalendarProvider = (*RemoteCalendarProvider)(nil)
