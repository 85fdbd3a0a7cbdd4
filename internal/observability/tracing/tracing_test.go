package tracing

import (
	"context"
	"testing"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), nil, "", "bibliotheque", "test")
	if err != nil {
		t.Fatalf("init without endpoint failed: %v", err)
	}
	if shutdown == nil {
		t.Fatalf("expected a shutdown function")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown failed: %v", err)
	}
}
