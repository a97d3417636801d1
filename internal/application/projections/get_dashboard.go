package projections

import (
	"context"
	"log/slog"
	"time"

	"ctbadmin/internal/domain/account"
	"ctbadmin/internal/domain/catalog"
	"ctbadmin/internal/domain/newsletter"
)

// SubscriberLister defines the fetch needed to count subscribers.
type SubscriberLister interface {
	ListSubscribers(ctx context.Context, segment string) ([]newsletter.Subscriber, error)
}

// GetDashboardQuery carries input for the dashboard projection.
type GetDashboardQuery struct {
	User account.User
}

// Dashboard is the home screen summary. A count that could not be fetched is
// -1 and its error is listed in Warnings.
type Dashboard struct {
	Greeting    string                 `json:"greeting"`
	Email       string                 `json:"email"`
	Role        string                 `json:"role"`
	IsAdmin     bool                   `json:"isAdmin"`
	Subscribers int                    `json:"subscribers"`
	Capsules    int                    `json:"capsules"`
	Activities  map[catalog.Domain]int `json:"activities"`
	Warnings    []string               `json:"warnings,omitempty"`
}

// GetDashboardDeps holds dependencies for the dashboard projection.
type GetDashboardDeps struct {
	Subscribers SubscriberLister
	Capsules    CapsuleLister
	Catalog     CatalogReader
	Now         func() time.Time
}

// QueryGetDashboard assembles the summary. Fetch failures degrade the
// affected count instead of failing the dashboard.
// PRE: User is the authenticated user
// POST: Always returns a Dashboard
func QueryGetDashboard(ctx context.Context, query GetDashboardQuery, deps GetDashboardDeps) Dashboard {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	d := Dashboard{
		Greeting:   greeting(now(), query.User.DisplayName()),
		Email:      query.User.Email,
		Role:       query.User.Role,
		IsAdmin:    query.User.IsAdmin(),
		Activities: map[catalog.Domain]int{},
	}

	warn := func(what string, err error) {
		slog.Warn("dashboard_partial", "part", what, "error", err)
		d.Warnings = append(d.Warnings, what+": "+err.Error())
	}

	if subs, err := deps.Subscribers.ListSubscribers(ctx, newsletter.SegmentAll); err != nil {
		d.Subscribers = -1
		warn("subscribers", err)
	} else {
		d.Subscribers = len(subs)
	}

	if caps, err := deps.Capsules.ListCapsules(ctx); err != nil {
		d.Capsules = -1
		warn("capsules", err)
	} else {
		d.Capsules = len(caps)
	}

	for _, domain := range []catalog.Domain{catalog.DomainTherapies, catalog.DomainMartialArts} {
		c, err := deps.Catalog.GetCatalog(ctx, domain)
		if err != nil {
			d.Activities[domain] = -1
			warn(string(domain), err)
			continue
		}
		d.Activities[domain] = len(c.Activities)
	}
	return d
}

func greeting(now time.Time, name string) string {
	word := "Bonjour"
	if now.Hour() >= 18 {
		word = "Bonsoir"
	}
	if name == "" {
		return word
	}
	return word + ", " + name
}
