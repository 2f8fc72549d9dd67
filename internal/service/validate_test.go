package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
		{
			name: "bare domain",
			raw:  "example.com",
			want: "https://example.com",
		},
		{
			name: "bare domain with path",
			raw:  "example.com/a/b?c=d",
			want: "https://example.com/a/b?c=d",
		},
		{
			name: "existing scheme is kept",
			raw:  "http://example.com",
			want: "http://example.com",
		},
		{
			name: "surrounding whitespace is trimmed",
			raw:  "  example.com  ",
			want: "https://example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeURL(tt.raw))
		})
	}
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{
			name: "https url",
			raw:  "https://example.com",
			want: true,
		},
		{
			name: "url with subdomains and path",
			raw:  "https://sub.example.co.uk/a/b?c=d",
			want: true,
		},
		{
			name: "url with port",
			raw:  "https://example.com:8443/a",
			want: true,
		},
		{
			name: "empty input",
			raw:  "",
			want: false,
		},
		{
			name: "missing scheme",
			raw:  "example.com",
			want: false,
		},
		{
			name: "missing host",
			raw:  "https://",
			want: false,
		},
		{
			name: "single-label host",
			raw:  "https://localhost",
			want: false,
		},
		{
			name: "numeric tld",
			raw:  "https://1.2.3.4",
			want: false,
		},
		{
			name: "underscore in host",
			raw:  "https://exa_mple.com",
			want: false,
		},
		{
			name: "whitespace in host",
			raw:  "https://not a url",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isValidURL(tt.raw))
		})
	}
}
