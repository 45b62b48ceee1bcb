package application_test

import (
	"context"
	"strconv"
	"testing"

	"request-gate/middleware/gate/application"
	"request-gate/middleware/gate/domain"
	"request-gate/middleware/gate/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuspicious(t *testing.T) {
	rules := domain.DefaultRules()

	tests := []struct {
		name string
		ua   string
		path string
		want bool
	}{
		{"empty user agent", "", "/api/products", true},
		{"browser on products", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120", "/api/products", false},
		{"bot marker", "Googlebot/2.1", "/api/products", true},
		{"scanner mixed case", "Mass-SCANNER 1.0", "/", true},
		{"curl on login", "curl/8.4.0", "/api/users/login", true},
		{"postman on login", "PostmanRuntime/7.26.8", "/api/users/login", true},
		{"curl on products", "curl/8.4.0", "/api/products", false},
		{"browser on login", "Mozilla/5.0 Safari/605.1.15", "/api/users/login", false},
		{"curl on auth segment", "curl/8.4.0", "/api/auth/token", true},
		{"curl on login with extension", "curl/8.4.0", "/LOGIN.php", true},
		{"curl on authors", "curl/8.4.0", "/api/authors", false},
		{"curl on oauth docs", "curl/8.4.0", "/oauth-docs", false},
		{"postman on signin-help", "PostmanRuntime/7.26.8", "/signin-help", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := application.Suspicious(domain.RequestMeta{UserAgent: tt.ua, Path: tt.path}, rules)
			assert.Equal(t, tt.want, got)
			if got {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestFlagger_AppendsBoundedEntries(t *testing.T) {
	store := infra.NewMemoryStore()
	stats := infra.NewMemoryStatsStore()
	n := 0
	f := application.Flagger{
		Store:    store,
		Capacity: 3,
		Stats:    stats,
		NewID:    func() string { n++; return "id-" + strconv.Itoa(n) },
	}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.True(t, f.Inspect(ctx, domain.RequestMeta{Identity: "1.1.1.1", Path: "/p" + strconv.Itoa(i), Method: "GET"}))
	}
	assert.False(t, f.Inspect(ctx, domain.RequestMeta{Identity: "1.1.1.1", UserAgent: "Mozilla/5.0 Chrome/120", Path: "/api/products"}))

	entries, err := f.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "id-5", entries[0].ID)
	assert.Equal(t, "/p4", entries[0].Path)
	assert.Equal(t, "Unknown", entries[0].UserAgent)
	assert.Equal(t, "id-3", entries[2].ID)
	assert.EqualValues(t, 5, stats.Total()[domain.EventSuspicious])
}

func TestFlagger_AppendFailureDoesNotChangeOutcome(t *testing.T) {
	f := application.Flagger{Store: downStore{}}
	assert.True(t, f.Inspect(context.Background(), domain.RequestMeta{Identity: "x", Path: "/"}))

	_, err := f.Recent(context.Background(), 10)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
