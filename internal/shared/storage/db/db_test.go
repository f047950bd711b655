package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func withOpener(t *testing.T, open func(name, dsn string) (*sql.DB, error)) {
	t.Helper()
	prev := openDB
	openDB = open
	singletonMu.Lock()
	singletonDB = nil
	singletonMu.Unlock()
	t.Cleanup(func() {
		openDB = prev
		singletonMu.Lock()
		singletonDB = nil
		singletonMu.Unlock()
	})
}

func mockOpener(t *testing.T) func(name, dsn string) (*sql.DB, error) {
	return func(name, dsn string) (*sql.DB, error) {
		database, _, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		return database, nil
	}
}

func TestDefaultsByRole(t *testing.T) {
	if got := Defaults(RoleLambda).MaxOpenConns; got != 2 {
		t.Fatalf("lambda MaxOpenConns: got %d", got)
	}
	if got := Defaults(RoleMigrate).MaxOpenConns; got != 1 {
		t.Fatalf("migrate MaxOpenConns: got %d", got)
	}
	if Defaults(RoleServer) != Defaults(Role("unknown")) {
		t.Fatalf("unknown roles should use server defaults")
	}
}

func TestRuntimeRole(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	if got := RuntimeRole(RoleWorker); got != RoleWorker {
		t.Fatalf("expected worker outside lambda, got %s", got)
	}
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "tender-worker")
	if got := RuntimeRole(RoleWorker); got != RoleLambda {
		t.Fatalf("expected lambda, got %s", got)
	}
}

func TestWithEnvAppliesOverrides(t *testing.T) {
	withOpener(t, mockOpener(t))

	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "bogus")

	opts := Defaults(RoleServer).WithEnv()
	if opts.MaxIdleConns != 3 || opts.ConnMaxLifetime != 20*time.Minute || opts.ConnMaxIdleTime != 45*time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.PingTimeout != Defaults(RoleServer).PingTimeout {
		t.Fatalf("invalid duration should keep the default, got %s", opts.PingTimeout)
	}

	database, err := Connect(context.Background(), "postgres://ignored", opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer database.Close()
	if got := database.Stats().MaxOpenConnections; got != 7 {
		t.Fatalf("expected MaxOpenConnections=7, got %d", got)
	}
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	if _, err := Connect(context.Background(), "  ", Options{}); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestConnectFailsWhenPingFails(t *testing.T) {
	withOpener(t, func(name, dsn string) (*sql.DB, error) {
		database, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		return database, nil
	})

	_, err := Connect(context.Background(), "postgres://ignored", Defaults(RoleServer))
	if err == nil || !strings.Contains(err.Error(), "ping database") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestGetSingletonReturnsSamePool(t *testing.T) {
	withOpener(t, mockOpener(t))

	db1, err := GetSingleton(context.Background(), "postgres://ignored", Defaults(RoleLambda))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	db2, err := Open(context.Background(), "postgres://ignored", RoleLambda)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if db1 != db2 {
		t.Fatalf("expected the same pool")
	}
}

func TestGetSingletonRetriesAfterFailure(t *testing.T) {
	calls := 0
	next := mockOpener(t)
	withOpener(t, func(name, dsn string) (*sql.DB, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("dns lookup failed")
		}
		return next(name, dsn)
	})

	if _, err := GetSingleton(context.Background(), "postgres://ignored", Defaults(RoleLambda)); err == nil {
		t.Fatalf("expected first call to fail")
	}
	database, err := GetSingleton(context.Background(), "postgres://ignored", Defaults(RoleLambda))
	if err != nil || database == nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestMigrateNilDatabaseIsNoop(t *testing.T) {
	if err := RunMigrations(context.Background(), nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := Migrate(context.Background(), nil, "sideways"); err != nil {
		t.Fatalf("nil database should short-circuit, got %v", err)
	}
}
