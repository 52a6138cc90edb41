package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"bistro/internal/auth"
	"bistro/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Setenv("JWT_SECRET", "tokengen-secret")
	t.Setenv("JWT_ISSUER", "")
	sub := uuid.New()

	var stdout, stderr bytes.Buffer
	err := run([]string{"-sub", sub.String(), "-email", "chef@bistro.test", "-role", "staff"}, &stdout, &stderr)
	require.NoError(t, err)

	issuer, err := auth.NewIssuer("tokengen-secret", "bistro", time.Hour)
	require.NoError(t, err)
	id, err := issuer.Parse(strings.TrimSpace(stdout.String()))
	require.NoError(t, err)

	assert.Equal(t, sub, id.UserID)
	assert.Equal(t, "chef@bistro.test", id.Email)
	assert.Equal(t, model.RoleStaff, id.Role)
	assert.Contains(t, stderr.String(), sub.String())
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		args   []string
		errMsg string
	}{
		{"Missing secret", "", []string{"-role", "staff"}, "JWT_SECRET"},
		{"Unknown role", "s", []string{"-role", "chef"}, "unknown role"},
		{"Bad sub", "s", []string{"-sub", "not-a-uuid"}, "invalid sub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.secret)
			var stdout, stderr bytes.Buffer

			err := run(tt.args, &stdout, &stderr)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Empty(t, stdout.String())
		})
	}
}
