package builtwith

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lookupBody = `{
  "Results": [{
    "Lookup": "acme.com",
    "Result": {"Paths": [
      {"Domain": "acme.com", "Technologies": [
        {"Name": "Shopify", "Categories": ["eCommerce"]},
        {"Name": "Google Analytics", "Categories": ["Analytics"]}
      ]},
      {"Domain": "acme.com", "SubDomain": "shop", "Technologies": [
        {"Name": "Stripe", "Categories": ["Payments Processor"]}
      ]}
    ]}
  }]
}`

func TestLookup(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		wantTechs int
	}{
		{name: "success", status: http.StatusOK, body: lookupBody, wantTechs: 3},
		{name: "api_error", status: http.StatusOK, body: `{"Results":[],"Errors":[{"Message":"invalid key"}]}`, wantErr: "invalid key"},
		{name: "server_error", status: http.StatusInternalServerError, body: `oops`, wantErr: "unexpected status 500"},
		{name: "malformed", status: http.StatusOK, body: `[`, wantErr: "unmarshal response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v21/api.json", r.URL.Path)
				assert.Equal(t, "test-key", r.URL.Query().Get("KEY"))
				assert.Equal(t, "acme.com", r.URL.Query().Get("LOOKUP"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := NewClient("test-key", WithBaseURL(srv.URL)).Lookup(context.Background(), "acme.com")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			techs := resp.Technologies()
			require.Len(t, techs, tt.wantTechs)
			assert.Equal(t, "Stripe", techs[2].Name)
		})
	}
}
