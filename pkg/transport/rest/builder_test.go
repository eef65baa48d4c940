package rest

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnines/msisdn-extractor/pkg/auth"
	"github.com/saturnines/msisdn-extractor/pkg/config"
)

func TestBuilder_Target(t *testing.T) {
	tests := []struct {
		name   string
		src    config.Source
		msisdn string
		want   string
	}{
		{
			name:   "query mode default param",
			src:    config.Source{Endpoint: "https://api.example.com/api/v1/contacts/search"},
			msisdn: "994501234567",
			want:   "https://api.example.com/api/v1/contacts/search?msisdn=994501234567",
		},
		{
			name: "query mode with static params",
			src: config.Source{
				Endpoint:    "https://api.example.com/search",
				Target:      config.Target{Mode: config.TargetModeQuery, Param: "number"},
				QueryParams: map[string]string{"is-personal-details-embedded": "true"},
			},
			msisdn: "123",
			want:   "https://api.example.com/search?is-personal-details-embedded=true&number=123",
		},
		{
			name:   "path mode adds exactly one slash",
			src:    config.Source{Endpoint: "https://api.example.com/subscribers/", Target: config.Target{Mode: config.TargetModePath}},
			msisdn: "123",
			want:   "https://api.example.com/subscribers/123",
		},
		{
			name:   "path mode without trailing slash",
			src:    config.Source{Endpoint: "https://api.example.com/subscribers", Target: config.Target{Mode: config.TargetModePath}},
			msisdn: "123",
			want:   "https://api.example.com/subscribers/123",
		},
		{
			name:   "path mode escapes identifier",
			src:    config.Source{Endpoint: "https://api.example.com/subscribers", Target: config.Target{Mode: config.TargetModePath}},
			msisdn: "a/b c",
			want:   "https://api.example.com/subscribers/a%2Fb%20c",
		},
		{
			name:   "template mode",
			src:    config.Source{Endpoint: "https://api.example.com/subscribers/{{msisdn}}/profile", Target: config.Target{Mode: config.TargetModeTemplate}},
			msisdn: "123",
			want:   "https://api.example.com/subscribers/123/profile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewBuilder(tt.src, nil).Target(tt.msisdn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuilder_TemplateEscaping(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		msisdn   string
		wantPath string
		wantQ    map[string]string
	}{
		{
			name:     "plus in query",
			endpoint: "https://api.test/s?msisdn={{msisdn}}",
			msisdn:   "+994501234567",
			wantPath: "/s",
			wantQ:    map[string]string{"msisdn": "+994501234567"},
		},
		{
			name:     "separators in query",
			endpoint: "https://api.test/s?q={{msisdn}}&v=1",
			msisdn:   "1&x=2",
			wantPath: "/s",
			wantQ:    map[string]string{"q": "1&x=2", "v": "1"},
		},
		{
			name:     "path and query",
			endpoint: "https://api.test/subscribers/{{msisdn}}?echo={{msisdn}}",
			msisdn:   "+994 50",
			wantPath: "/subscribers/+994 50",
			wantQ:    map[string]string{"echo": "+994 50"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(config.Source{Endpoint: tt.endpoint, Target: config.Target{Mode: config.TargetModeTemplate}}, nil)

			req, err := b.Build(context.Background(), tt.msisdn)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPath, req.URL.Path)
			q := req.URL.Query()
			assert.Len(t, q, len(tt.wantQ))
			for k, v := range tt.wantQ {
				assert.Equal(t, v, q.Get(k), k)
			}
		})
	}
}

func TestBuilder_Build(t *testing.T) {
	t.Setenv("TENANT_ID", "acme")

	src := config.Source{
		Endpoint: "https://api.example.com/{{TENANT_ID}}/search",
		Method:   "get",
		Target:   config.Target{Header: "Msisdn"},
		Headers:  map[string]string{"X-Tenant": "{{TENANT_ID}}", "User-Agent": "custom/1.0"},
	}
	b := NewBuilder(src, auth.NewBearerAuth("tok"))

	req, err := b.Build(context.Background(), "994501234567")
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "https://api.example.com/acme/search?msisdn=994501234567", req.URL.String())
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, "custom/1.0", req.Header.Get("User-Agent"))
	assert.Equal(t, "acme", req.Header.Get("X-Tenant"))
	assert.Equal(t, "994501234567", req.Header.Get("Msisdn"))
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
}

func TestBuilder_UnsetVariableLeftAlone(t *testing.T) {
	b := NewBuilder(config.Source{
		Endpoint: "https://api.example.com/search",
		Headers:  map[string]string{"X-Key": "{{MSISDN_EXTRACTOR_UNSET_VAR}}"},
	}, nil)

	req, err := b.Build(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "{{MSISDN_EXTRACTOR_UNSET_VAR}}", req.Header.Get("X-Key"))
}

func TestBuilder_AuthFailure(t *testing.T) {
	b := NewBuilder(config.Source{Endpoint: "https://api.example.com/search"}, auth.NewBearerAuth(""))

	_, err := b.Build(context.Background(), "1")
	assert.Error(t, err)
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(WithTimeout(5*time.Second), WithInsecureSkipVerify(true))
	assert.Equal(t, 5*time.Second, c.Timeout)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)

	plain := NewHTTPClient()
	assert.Equal(t, 30*time.Second, plain.Timeout)
	assert.Nil(t, plain.Transport)
}

type stubDoer struct{}

func (stubDoer) Do(*http.Request) (*http.Response, error) { return nil, nil }

func TestApplyHTTPClientOptions(t *testing.T) {
	base := &http.Client{}
	got := ApplyHTTPClientOptions(base, WithTimeout(2*time.Second))

	c, ok := got.(*http.Client)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, c.Timeout)
	assert.Equal(t, time.Duration(0), base.Timeout, "options apply to a copy")

	var other HTTPDoer = stubDoer{}
	assert.Equal(t, other, ApplyHTTPClientOptions(other, WithTimeout(time.Second)))
}
