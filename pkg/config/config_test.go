package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/arnac-io/fundquorum/pkg/core"
)

func TestParse(t *testing.T) {
	t.Setenv("OWNERS", "0x000000000000000000000000000000000000000A, 0x000000000000000000000000000000000000000b")
	t.Setenv("REQUIRED", "2")
	t.Setenv("MULTISIG_ADDRESS", "0x2222222222222222222222222222222222222222")
	t.Setenv("INDEXER_REFRESH_INTERVAL", "1m")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	c, err := Parse()
	require.Nil(t, err)
	require.Equal(t, []core.Address{
		"0x000000000000000000000000000000000000000a",
		"0x000000000000000000000000000000000000000b",
	}, []core.Address(c.Multisig.Owners))
	require.Equal(t, 2, c.Multisig.Required)
	require.Equal(t, core.Address("0x2222222222222222222222222222222222222222"), c.Multisig.Address)
	require.Equal(t, time.Minute, c.Indexer.RefreshInterval)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, c.API.CorsOrigins)
	require.Equal(t, 8081, c.API.Port)
	require.Equal(t, 1, c.Fund.MinChecks)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr int
	}{
		{
			name:    "bad owner",
			env:     map[string]string{"OWNERS": "0x01"},
			wantErr: 1,
		},
		{
			name: "threshold and checks",
			env: map[string]string{
				"OWNERS":                "0x000000000000000000000000000000000000000a",
				"REQUIRED":              "2",
				"WITHDRAWAL_MIN_CHECKS": "0",
			},
			wantErr: 2,
		},
		{
			name: "duplicate owner",
			env: map[string]string{
				"OWNERS": "0x000000000000000000000000000000000000000a,0x000000000000000000000000000000000000000A",
			},
			wantErr: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			require.NotNil(t, err)
			require.Len(t, multierr.Errors(err), tt.wantErr)
		})
	}
}
