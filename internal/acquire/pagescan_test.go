package acquire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func servePage(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScanPageForVideo_SrcAttribute(t *testing.T) {
	srv := servePage(t, `<html><body><video src="/media/anim.mp4"></video></body></html>`)

	got, err := scanPageForVideo(context.Background(), nil, srv.URL+"/watch")
	if err != nil {
		t.Fatalf("scanPageForVideo: %v", err)
	}
	want := srv.URL + "/media/anim.mp4"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScanPageForVideo_SourceChild(t *testing.T) {
	srv := servePage(t, `<html><body>
		<video controls><source src="https://cdn.example.com/anim.webm" type="video/webm"></video>
	</body></html>`)

	got, err := scanPageForVideo(context.Background(), nil, srv.URL)
	if err != nil {
		t.Fatalf("scanPageForVideo: %v", err)
	}
	if got != "https://cdn.example.com/anim.webm" {
		t.Errorf("got %q, want the absolute source URL", got)
	}
}

func TestScanPageForVideo_NoVideo(t *testing.T) {
	srv := servePage(t, `<html><body><div id="player"></div><script>buildPlayer()</script></body></html>`)

	got, err := scanPageForVideo(context.Background(), nil, srv.URL)
	if err != nil {
		t.Fatalf("scanPageForVideo: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty for a JS-built player", got)
	}
}

func TestScanPageForVideo_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := scanPageForVideo(context.Background(), nil, srv.URL); err == nil {
		t.Fatal("expected error for 404 page")
	}
}
