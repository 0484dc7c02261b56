package hostutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  ", ""},
		{"https://erp.example.co.id/api", "https://erp.example.co.id/api"},
		{"http://erp.example.co.id/api/", "http://erp.example.co.id/api"},
		{"erp.example.co.id", "https://erp.example.co.id"},
		{"erp.example.co.id/api", "https://erp.example.co.id/api"},
		{"erp.example.co.id:8443/api", "https://erp.example.co.id:8443/api"},
		{"localhost:4000/api", "http://localhost:4000/api"},
		{"tenant.erp.localhost/api", "http://tenant.erp.localhost/api"},
		{"127.0.0.1:4000", "http://127.0.0.1:4000"},
		{"[::1]:4000/api", "http://[::1]:4000/api"},
		{"localhost.example.com", "https://localhost.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestIsLocal(t *testing.T) {
	local := []string{"localhost", "LOCALHOST:4000", "tenant.erp.localhost", "127.0.0.1", "127.0.0.2:80", "[::1]", "[::1]:4000", "::1"}
	remote := []string{"", "erp.example.co.id", "localhost.example.com", "192.168.1.10", "10.0.0.1:4000"}

	for _, h := range local {
		assert.True(t, IsLocal(h), h)
	}
	for _, h := range remote {
		assert.False(t, IsLocal(h), h)
	}
}

func TestRequireSecure(t *testing.T) {
	for _, ok := range []string{"", "https://erp.example.co.id/api", "http://localhost:4000/api", "http://127.0.0.1:39211"} {
		assert.NoError(t, RequireSecure(ok), ok)
	}

	err := RequireSecure("http://erp.example.co.id/api")
	assert.ErrorContains(t, err, "plain http")
}
