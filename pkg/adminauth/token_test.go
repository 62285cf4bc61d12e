package adminauth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func fixedSalt(n int) ([]byte, error) {
	return make([]byte, n), nil
}

func TestHashAndVerifyRoundTrip(t *testing.T) {
	hash, err := NewHash("s3cret", fixedSalt)
	if err != nil {
		t.Fatalf("NewHash: %v", err)
	}
	if err := Verify(hash, "s3cret"); err != nil {
		t.Fatalf("expected verify to succeed: %v", err)
	}
	if err := Verify(hash, "wrong"); err == nil {
		t.Fatal("expected verify to fail for a wrong token")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	if err := Verify("not-a-valid-hash", "anything"); err == nil {
		t.Fatal("expected malformed hash to fail verification")
	}
}

func TestMiddlewareDisabledWhenHashEmpty(t *testing.T) {
	called := false
	h := Middleware("", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("expected handler to run when auth is disabled")
	}
}

func TestMiddlewareRejectsMissingOrWrongToken(t *testing.T) {
	hash, _ := NewHash("s3cret", fixedSalt)
	called := false
	h := Middleware(hash, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
	if called {
		t.Fatal("handler must not run without a valid token")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with a valid token, got %d", rec.Code)
	}
	if !called {
		t.Fatal("expected handler to run with a valid token")
	}
}
