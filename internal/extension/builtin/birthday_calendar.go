package builtin

import (
	"context"
	"fmt"
	"path"

	"github.com/emersion/go-webdav/caldav"

	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// BirthdayCalendar derives one read-only birthday calendar per address book
// visible to the principal. The events themselves are generated by the host
// from contact birthdays; this provider only contributes the calendar nodes.
//
// It needs an address book provider at construction, so it resolves through
// the container rather than the factory table.
type BirthdayCalendar struct {
	source sdk.AddressBookProvider
}

// NewBirthdayCalendar creates a birthday calendar over an address book source.
func NewBirthdayCalendar(source sdk.AddressBookProvider) *BirthdayCalendar {
	return &BirthdayCalendar{source: source}
}

// ProviderName returns the provider's unique name.
func (p *BirthdayCalendar) ProviderName() string {
	return "birthday-calendar"
}

// Calendars returns one birthday calendar per source address book.
func (p *BirthdayCalendar) Calendars(ctx context.Context, principal string) ([]caldav.Calendar, error) {
	books, err := p.source.AddressBooks(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("listing source address books: %w", err)
	}

	calendars := make([]caldav.Calendar, 0, len(books))
	for _, book := range books {
		calendars = append(calendars, caldav.Calendar{
			Path:                  path.Join("/calendars", principal, "birthdays", path.Base(path.Clean(book.Path))) + "/",
			Name:                  fmt.Sprintf("Birthdays: %s", book.Name),
			Description:           "Birthdays derived from " + book.Name,
			SupportedComponentSet: []string{"VEVENT"},
		})
	}
	return calendars, nil
}

var _ sdk.CalendarProvider = (*BirthdayCalendar)(nil)
