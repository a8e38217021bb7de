package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cryptodaily/newsroom/internal/models"
)

func newTestIPFSStore(t *testing.T, uploadURL string, gateways []string) *IPFSStore {
	t.Helper()
	s, err := NewIPFSStore("test-jwt", uploadURL, gateways, 2*time.Second)
	if err != nil {
		t.Fatalf("NewIPFSStore: %v", err)
	}
	return s
}

func TestIPFSPutUploadsAndRegisters(t *testing.T) {
	var gotAuth string
	upload := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file field: %v", err)
		}
		if r.FormValue("network") != "public" {
			t.Errorf("network = %q", r.FormValue("network"))
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"id": "1", "cid": "QmTest123", "size": 3},
		})
	}))
	defer upload.Close()

	s := newTestIPFSStore(t, upload.URL, []string{"http://unused.invalid"})
	key := Key{SessionID: uuid.New(), Speaker: models.SpeakerAlex, Index: 1}

	cid, err := s.Put(context.Background(), key, []byte("mp3"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if cid != "QmTest123" {
		t.Errorf("cid = %q", cid)
	}
	if gotAuth != "Bearer test-jwt" {
		t.Errorf("auth header = %q", gotAuth)
	}

	// Second Put for the same key reuses the registered CID, no upload.
	upload.Close()
	cid2, err := s.Put(context.Background(), key, []byte("mp3"))
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if cid2 != cid {
		t.Errorf("second Put cid = %q, want %q", cid2, cid)
	}
}

func TestIPFSGetFallsBackAcrossGateways(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()

	serving := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ipfs/QmTest123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte("audio-bytes"))
	}))
	defer serving.Close()

	s := newTestIPFSStore(t, "http://unused.invalid", []string{failing.URL, serving.URL})

	data, err := s.Get(context.Background(), "QmTest123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("data = %q", data)
	}
}

func TestIPFSGetAllMissingIsNotFound(t *testing.T) {
	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer missing.Close()

	s := newTestIPFSStore(t, "http://unused.invalid", []string{missing.URL, missing.URL})

	_, err := s.Get(context.Background(), "QmMissing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestIPFSExistsOnlySeesRegisteredCIDs(t *testing.T) {
	s := newTestIPFSStore(t, "http://unused.invalid", []string{"http://unused.invalid"})
	key := Key{SessionID: uuid.New(), Speaker: models.SpeakerMorgan, Index: 4}

	if _, ok, _ := s.Exists(context.Background(), key); ok {
		t.Error("expected miss before RegisterCID")
	}

	s.RegisterCID(models.SpeakerMorgan, 4, "QmKnown")
	cid, ok, err := s.Exists(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("Exists = (%v, %v), want (true, nil)", ok, err)
	}
	if cid != "QmKnown" {
		t.Errorf("cid = %q", cid)
	}
}
