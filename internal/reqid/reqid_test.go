package reqid

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, id, got)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	_, ok = FromContext(context.Background())
	assert.False(t, ok, "unexpected id in empty context")
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(Header, "abc-123")
	_, id := FromRequest(r)
	assert.Equal(t, "abc-123", id)

	r.Header.Set(Header, "bad id with spaces")
	_, id = FromRequest(r)
	assert.NotEqual(t, "bad id with spaces", id)
	assert.NotEmpty(t, id)
}
