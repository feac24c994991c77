package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"budget/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "/tmp/budget.db",
		AMQPURL:      "amqp://localhost/",
		AMQPExchange: "budget",
		AMQPQueue:    "export_transactions",
		Timezone:     "Asia/Tokyo",
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/budget.db" || cfg.AMQPQueue != "export_transactions" {
		t.Errorf("unexpected backend config: %+v", cfg)
	}
	if cfg.Location == nil || cfg.Location.String() != "Asia/Tokyo" {
		t.Errorf("Location = %v, want Asia/Tokyo", cfg.Location)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "sheets"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost/", AMQPExchange: "budget"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if res.Store == nil || res.Backuper != nil || res.Publisher != nil {
			t.Errorf("unexpected memory backend: %+v", res)
		}
		if err := res.Ping(ctx); err != nil {
			t.Errorf("Ping: %v", err)
		}
		if err := res.Cleanup(); err != nil {
			t.Errorf("Cleanup: %v", err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "budget.db")
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		defer res.Cleanup()
		if res.Backuper == nil {
			t.Error("expected sqlite backend to support backups")
		}
		if err := res.Ping(ctx); err != nil {
			t.Errorf("Ping: %v", err)
		}
	})
}

func TestChainCleanup(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	cleanup := chainCleanup(
		func() error { order = append(order, "amqp"); return boom },
		nil,
		func() error { order = append(order, "store"); return nil },
	)
	if err := cleanup(); !errors.Is(err, boom) {
		t.Errorf("cleanup error = %v, want boom", err)
	}
	if len(order) != 2 || order[0] != "amqp" || order[1] != "store" {
		t.Errorf("cleanup order = %v", order)
	}
}
