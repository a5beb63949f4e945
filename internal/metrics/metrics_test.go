package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	eventbus "github.com/hanpama/graphgate/internal/eventbus"
	events "github.com/hanpama/graphgate/internal/events"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEventsFeedMetrics(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	reg := New()
	unsubscribe := reg.Subscribe()
	defer unsubscribe()

	ctx := context.Background()
	r := httptest.NewRequest("GET", "/", nil)
	eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: 200})
	eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: 200})
	eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: 503})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query", HasData: true})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query", HasData: true, Errors: []error{errors.New("x")}})
	eventbus.Publish(ctx, events.GraphQLFinish{Errors: []error{errors.New("syntax")}})
	eventbus.Publish(ctx, events.EngineReady{Duration: 20 * time.Millisecond})
	eventbus.Publish(ctx, events.DocsRendered{Origin: "http://x", Format: "html"})

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.HTTPRequests.WithLabelValues("200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.HTTPRequests.WithLabelValues("503")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.GraphQLOperations.WithLabelValues("query", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.GraphQLOperations.WithLabelValues("query", "partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.GraphQLOperations.WithLabelValues("unknown", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.EngineStartups.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.EngineReady))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.DocsRenders.WithLabelValues("html")))
}

func TestHandlerExposesGatewayMetrics(t *testing.T) {
	reg := New()
	reg.EngineReady.Set(1)

	w := httptest.NewRecorder()
	reg.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "graphgate_engine_ready 1"))
}
