package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"espresso_panel/internal/service"
)

func TestAuthHandlers_SignUpAndSignIn(t *testing.T) {
	auth := &mockAuth{signUpID: 42, genTokenToken: "tok123", parseID: 1}
	s := &service.Service{Authorization: auth}
	r := newTestRouter(s)

	w := postJSON(t, r, "/auth/sign-up", `{"username":"barista","password":"p"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sign-up status=%d, body=%s", w.Code, w.Body.String())
	}
	var m map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	if int(m["id"].(float64)) != 42 {
		t.Fatalf("expected id=42, got %v", m["id"])
	}
	if auth.lastSignUpUsername != "barista" || auth.lastSignUpPassword != "p" {
		t.Fatalf("unexpected sign-up args %q/%q", auth.lastSignUpUsername, auth.lastSignUpPassword)
	}

	w = postJSON(t, r, "/auth/sign-in", `{"username":"barista","password":"p"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sign-in status=%d, body=%s", w.Code, w.Body.String())
	}
	m = nil
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	if m["token"] != "tok123" {
		t.Fatalf("expected token tok123, got %v", m["token"])
	}

	w = postJSON(t, r, "/auth/sign-in", `{"username":1}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", w.Code)
	}
}

func TestAuthHandlers_SignInFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown operator", service.ErrOperatorNotFound, http.StatusUnauthorized},
		{"wrong password", service.ErrInvalidPassword, http.StatusUnauthorized},
		{"backend failure", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&service.Service{Authorization: &mockAuth{genTokenErr: tc.err}})
			w := postJSON(t, r, "/auth/sign-in", `{"username":"u","password":"p"}`, nil)
			if w.Code != tc.want {
				t.Fatalf("status=%d, want %d (body=%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestAuthHandlers_SignUpRejected(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", errors.New("username is empty"), http.StatusBadRequest},
		{"taken username", fmt.Errorf("insert operator %q: %w", "u", service.ErrOperatorExists), http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&service.Service{Authorization: &mockAuth{signUpErr: tc.err}})
			w := postJSON(t, r, "/auth/sign-up", `{"username":"u","password":"p"}`, nil)
			if w.Code != tc.want {
				t.Fatalf("status=%d, want %d (body=%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}
