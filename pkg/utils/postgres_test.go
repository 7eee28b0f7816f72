package utils

import (
	"context"
	"testing"
	"time"
)

func TestAuditDBOptions_Defaults(t *testing.T) {
	o := AuditDBOptions{}.resolved()
	if o.MaxConns != defaultAuditConns || o.PingTimeout != defaultAuditPingTimeout {
		t.Fatalf("unexpected defaults %+v", o)
	}

	o = AuditDBOptions{MaxConns: 9, PingTimeout: time.Second}.resolved()
	if o.MaxConns != 9 || o.PingTimeout != time.Second {
		t.Fatalf("explicit options overridden: %+v", o)
	}
}

func TestOpenPostgres_UnknownDriver(t *testing.T) {
	if _, err := OpenPostgres(context.Background(), "no-such-driver", "postgres://x", AuditDBOptions{}); err == nil {
		t.Fatal("expected an error for an unregistered driver")
	}
}
