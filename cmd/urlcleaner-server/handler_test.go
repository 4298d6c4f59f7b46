package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestCleanHandler_ResolveProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		requested       string
		subject         string
		subjectProfiles map[string]string
		defaultProfile  string
		expected        string
	}{
		{
			name:      "explicit request profile wins",
			requested: "strict",
			subject:   "caller-a",
			subjectProfiles: map[string]string{
				"caller-a": "lenient",
			},
			defaultProfile: "default",
			expected:       "strict",
		},
		{
			name:      "subject override applies when request omits a profile",
			requested: "",
			subject:   "caller-a",
			subjectProfiles: map[string]string{
				"caller-a": "lenient",
			},
			defaultProfile: "default",
			expected:       "lenient",
		},
		{
			name:            "unmapped subject falls back to default profile",
			requested:       "",
			subject:         "caller-b",
			subjectProfiles: map[string]string{"caller-a": "lenient"},
			defaultProfile:  "default",
			expected:        "default",
		},
		{
			name:            "no subject on the request context falls back to default profile",
			requested:       "",
			subject:         "",
			subjectProfiles: map[string]string{"caller-a": "lenient"},
			defaultProfile:  "default",
			expected:        "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := &cleanHandler{defaultProfile: tt.defaultProfile, subjectProfiles: tt.subjectProfiles}

			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/clean", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.subject != "" {
				c.Set("token_subject", tt.subject)
			}

			assert.Equal(t, tt.expected, h.resolveProfile(c, tt.requested))
		})
	}
}
