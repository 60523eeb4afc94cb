package scoreboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const page = `<html><body>
<h1>Standings</h1>
<table id="scores">
  <tr><th>#</th><th>Player</th><th>Wins</th><th>Losses</th><th>ELO</th></tr>
  <tr><td>1.</td><td>alice</td><td>40</td><td>3</td><td>1712.5</td></tr>
  <tr><td>2.</td><td> lightbot </td><td>12</td><td>20</td><td>1480</td></tr>
  <tr><td>3.</td><td>carol</td><td>n/a</td><td>1</td><td>x</td></tr>
</table>
</body></html>`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := serve(t, http.StatusOK, page)
	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.TableSelector = "#scores"

	entries, err := NewScraper(cfg).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries=%d want 3", len(entries))
	}
	want := Entry{Rank: 2, Name: "lightbot", Wins: 12, Losses: 20, Score: 1480}
	got, ok := Find(entries, "LightBot")
	if !ok || got != want {
		t.Fatalf("got=%+v want=%+v", got, want)
	}
	if entries[2].Wins != 0 || entries[2].Score != 0 {
		t.Fatalf("bad numbers should parse as 0: %+v", entries[2])
	}
	if _, ok := Find(entries, "nobody"); ok {
		t.Fatalf("found missing player")
	}
}

func TestFetch_Errors(t *testing.T) {
	cfg := DefaultConfig()

	cfg.URL = serve(t, http.StatusInternalServerError, "").URL
	if _, err := NewScraper(cfg).Fetch(context.Background()); err == nil {
		t.Fatalf("expected status error")
	}

	cfg.URL = serve(t, http.StatusOK, "<p>no table</p>").URL
	if _, err := NewScraper(cfg).Fetch(context.Background()); err == nil {
		t.Fatalf("expected missing table error")
	}

	cfg.URL = serve(t, http.StatusOK, "<table><tr><th>x</th></tr><tr><td>1</td></tr></table>").URL
	if _, err := NewScraper(cfg).Fetch(context.Background()); err == nil {
		t.Fatalf("expected missing name column error")
	}
}
