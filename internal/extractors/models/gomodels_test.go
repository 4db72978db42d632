package models

import (
	"context"
	"reflect"
	"testing"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/extractors/extractortest"
	"github.com/dejo1307/frontdoc/internal/facts"
)

// --- helpers ---

func extractAll(t *testing.T, kind string, files map[string]string) []facts.ModelInfo {
	t.Helper()
	repo := extractortest.NewRepo(t, kind, files)
	res, err := New().Extract(context.Background(), repo)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return res.Models
}

func findModel(ms []facts.ModelInfo, name string) (facts.ModelInfo, bool) {
	for _, m := range ms {
		if m.Name == name {
			return m, true
		}
	}
	return facts.ModelInfo{}, false
}

func TestGoModels_CreateTable(t *testing.T) {
	ms := extractAll(t, config.KindGoAPI, map[string]string{
		"pkg/db/tables.go": `package db

const CreateUsersTable = ` + "`" + `
CREATE TABLE IF NOT EXISTS users (
    id INT AUTO_INCREMENT PRIMARY KEY,
    username VARCHAR(255) NOT NULL UNIQUE,
    email VARCHAR(255) NOT NULL UNIQUE,
    PRIMARY KEY (id)
);` + "`" + `

const CreateOrdersTable = ` + "`" + `
CREATE TABLE "orders" (
    id INT AUTO_INCREMENT PRIMARY KEY,
    user_id INT NOT NULL,
    total NUMERIC(10, 2)
);` + "`" + `
`,
	})

	users, ok := findModel(ms, "users")
	if !ok {
		t.Fatal("expected table model for CREATE TABLE users")
	}
	if users.Kind != KindTable || users.Source != SourceSQL {
		t.Errorf("users kind/source = %s/%s, want table/sql", users.Kind, users.Source)
	}
	if want := []string{"id", "username", "email"}; !reflect.DeepEqual(users.Fields, want) {
		t.Errorf("users fields = %v, want %v", users.Fields, want)
	}
	if users.Line != 4 {
		t.Errorf("users line = %d, want 4", users.Line)
	}

	orders, ok := findModel(ms, "orders")
	if !ok {
		t.Fatal("expected table model for quoted CREATE TABLE orders")
	}
	if want := []string{"id", "user_id", "total"}; !reflect.DeepEqual(orders.Fields, want) {
		t.Errorf("orders fields = %v, want %v", orders.Fields, want)
	}
}

func TestGoModels_QueriesAreNotModels(t *testing.T) {
	ms := extractAll(t, config.KindGoAPI, map[string]string{
		"internal/repo/orders.go": `package repo

const insertOrder = "INSERT INTO orders (user_id, total) VALUES (?, ?)"
const selectOrders = ` + "`SELECT * FROM orders WHERE user_id = ?`" + `
`,
	})
	if len(ms) != 0 {
		t.Errorf("expected no models for plain queries, got %+v", ms)
	}
}

func TestGoModels_TaggedStructs(t *testing.T) {
	ms := extractAll(t, config.KindGoAPI, map[string]string{
		"internal/domain/user.go": `package domain

import "time"

type User struct {
	Base
	ID        string    ` + "`json:\"id\" db:\"id\"`" + `
	Email     string    ` + "`json:\"email\"`" + `
	CreatedAt time.Time ` + "`json:\"created_at\"`" + `
	password  string
}

type Base struct {
	Version int
}

type service struct {
	Name string ` + "`json:\"name\"`" + `
}

type Handler interface {
	Handle()
}
`,
	})

	if len(ms) != 1 {
		t.Fatalf("expected only the tagged exported struct, got %+v", ms)
	}
	u := ms[0]
	if u.Name != "User" || u.Kind != KindStruct || u.Source != SourceGo {
		t.Errorf("got %+v", u)
	}
	if want := []string{"Base", "ID", "Email", "CreatedAt"}; !reflect.DeepEqual(u.Fields, want) {
		t.Errorf("fields = %v, want %v", u.Fields, want)
	}
	if u.Line != 5 {
		t.Errorf("line = %d, want 5", u.Line)
	}
}

func TestGoModels_TestFilesSkipped(t *testing.T) {
	ms := extractAll(t, config.KindGoAPI, map[string]string{
		"internal/domain/user_test.go": "package domain\n\ntype Fixture struct {\n\tID string `json:\"id\"`\n}\n",
	})
	if len(ms) != 0 {
		t.Errorf("expected test files to be skipped, got %+v", ms)
	}
}

func TestSQLFiles(t *testing.T) {
	ms := extractAll(t, config.KindGoAPI, map[string]string{
		"migrations/001_init.sql": `-- initial schema
CREATE TABLE accounts (
  id UUID PRIMARY KEY,
  owner_id UUID REFERENCES users(id),
  CONSTRAINT owner_fk FOREIGN KEY (owner_id) REFERENCES users (id)
);

create table public.sessions (token TEXT, expires_at TIMESTAMPTZ);
`,
	})

	accounts, ok := findModel(ms, "accounts")
	if !ok {
		t.Fatal("expected accounts table")
	}
	if accounts.Line != 2 {
		t.Errorf("accounts line = %d, want 2", accounts.Line)
	}
	if want := []string{"id", "owner_id"}; !reflect.DeepEqual(accounts.Fields, want) {
		t.Errorf("accounts fields = %v, want %v", accounts.Fields, want)
	}

	sessions, ok := findModel(ms, "sessions")
	if !ok {
		t.Fatal("expected schema-qualified sessions table")
	}
	if sessions.Line != 8 {
		t.Errorf("sessions line = %d, want 8", sessions.Line)
	}
	if want := []string{"token", "expires_at"}; !reflect.DeepEqual(sessions.Fields, want) {
		t.Errorf("sessions fields = %v, want %v", sessions.Fields, want)
	}
}
