package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	logger, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNew_InvalidFormat(t *testing.T) {
	_, err := New(&Config{Level: "info", Format: "xml"})
	require.Error(t, err)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Format: "json"})
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid json", Config{Level: "debug", Format: "json"}, false},
		{"valid console", Config{Level: "warn", Format: "console"}, false},
		{"bad format", Config{Level: "info", Format: "text"}, true},
		{"bad level", Config{Level: "verbose", Format: "json"}, true},
		{"empty field key", Config{Level: "info", Format: "json", Fields: map[string]string{"": "x"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, "req-42")
	assert.Equal(t, "req-42", RequestIDFromContext(ctx))
}

func TestContextFields_NoCorrelation(t *testing.T) {
	fields := ContextFields(context.Background())
	assert.Empty(t, fields)
}

func TestContextFields_RequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-7")
	fields := ContextFields(ctx)
	require.Len(t, fields, 1)
	assert.Equal(t, "request.id", fields[0].Key)
}
