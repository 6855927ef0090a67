package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/config"
)

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.DatabaseConfig{Driver: "sqlite", URL: "file::memory:"})
	if err == nil {
		t.Fatal("expected an error for an unknown driver")
	}
	if !strings.Contains(err.Error(), "sqlite") {
		t.Errorf("error should name the driver, got %v", err)
	}
}

func TestOpen_RequiresURL(t *testing.T) {
	_, err := Open(context.Background(), &config.DatabaseConfig{Driver: "postgres"})
	if err == nil {
		t.Fatal("expected an error without a URL")
	}
}

func TestOpen_RegisteredDriver(t *testing.T) {
	wantErr := errors.New("connection refused")
	RegisterDriver("test-refusing", func(context.Context, *config.DatabaseConfig) (Backend, error) {
		return nil, wantErr
	})

	_, err := Open(context.Background(), &config.DatabaseConfig{Driver: "test-refusing", URL: "x"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped driver error, got %v", err)
	}

	found := false
	for _, name := range Drivers() {
		if name == "test-refusing" {
			found = true
		}
	}
	if !found {
		t.Error("registered driver missing from Drivers()")
	}
}

func TestRegisterDriver_Duplicate(t *testing.T) {
	open := func(context.Context, *config.DatabaseConfig) (Backend, error) { return nil, nil }
	RegisterDriver("test-dup", open)

	defer func() {
		if recover() == nil {
			t.Error("expected a panic on duplicate registration")
		}
	}()
	RegisterDriver("test-dup", open)
}
