package i18n

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestT(t *testing.T) {
	tests := []struct {
		name string
		lang string
		c    C
		want string
	}{
		{
			name: "english",
			lang: "en",
			c:    C{MessageID: "setSafeAsset"},
			want: "Set safe asset",
		},
		{
			name: "russian with template",
			lang: "ru-RU,ru;q=0.9",
			c:    C{MessageID: "confirmWithdrawal", TemplateData: map[string]any{"OperationID": 7}},
			want: "Подтвердить вывод №7",
		},
		{
			name: "fallback",
			lang: "de",
			c:    C{MessageID: "changeRequirement", TemplateData: map[string]any{"Required": 2}},
			want: "Require 2 confirmations",
		},
		{
			name: "unknown message",
			lang: "en",
			c:    C{MessageID: "unknown"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, T(tt.lang, tt.c))
		})
	}
}
