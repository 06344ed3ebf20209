package observability

import (
	"context"
	"testing"
	"time"

	"github.com/vl-kp/gamekey-bot/internal/config"
)

func TestSetupOTel_DisabledIsNoop(t *testing.T) {
	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected a shutdown function")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown returned %v", err)
	}
}

func TestSetupOTel_EnabledReturnsShutdown(t *testing.T) {
	cfg := config.OTELConfig{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		Insecure:    true,
		ServiceName: "gamekey-bot-test",
		SampleRatio: 1.0,
	}
	shutdown, err := SetupOTel(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected a shutdown function")
	}

	// No collector is listening, so flushing may fail; only the call's
	// boundedness matters here.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
