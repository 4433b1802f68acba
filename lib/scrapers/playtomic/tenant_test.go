package playtomic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const clubPage = `<!doctype html><html><head><title>booking</title></head><body>
<div id="root"></div>
<script>window.dataLayer = [];</script>
<script id="__NEXT_DATA__" type="application/json">{
	"props": {"pageProps": {"tenant": {
		"tenant_name": "Playmore Al Quoz",
		"tenant_uid": "95ca4d9e-42f5-4c06-9a2e-berg"
	}}}
}</script>
</body></html>`

func TestGetTenant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(clubPage))
	}))
	defer server.Close()

	client, err := NewTenantClient()
	require.NoError(t, err)

	tenant, err := client.GetTenant(context.Background(), server.URL+"/tenant/95ca4d9e")
	require.NoError(t, err)
	require.Equal(t, "Playmore Al Quoz", tenant.Name)
	require.Equal(t, "95ca4d9e-42f5-4c06-9a2e-berg", tenant.Uid)
}

func TestGetTenantMissingBootstrap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><script>var x = 1;</script></body></html>`))
	}))
	defer server.Close()

	client, err := NewTenantClient()
	require.NoError(t, err)

	_, err = client.GetTenant(context.Background(), server.URL)
	require.Error(t, err)
}

func TestTenantUidFromUrl(t *testing.T) {
	require.Equal(
		t,
		"95ca4d9e-42f5",
		TenantUidFromUrl("https://playtomic.io/tenant/95ca4d9e-42f5"),
	)
	require.Equal(
		t,
		"95ca4d9e-42f5",
		TenantUidFromUrl("https://playtomic.io/tenant/95ca4d9e-42f5?q=PADEL"),
	)
}
