package store

import (
	"testing"
	"time"
)

func TestS3PublicURL(t *testing.T) {
	tests := []struct {
		name      string
		publicURL string
		locator   string
		want      string
	}{
		{"no base configured", "", "sessions/abc/segments/0/alex_0.mp3", ""},
		{"no trailing slash", "https://cdn.example.com", "sessions/abc/segments/0/alex_0.mp3",
			"https://cdn.example.com/sessions/abc/segments/0/alex_0.mp3"},
		{"trailing slash", "https://cdn.example.com/", "sessions/abc/segments/0/alex_0.mp3",
			"https://cdn.example.com/sessions/abc/segments/0/alex_0.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &S3Store{publicURL: tt.publicURL}
			if got := s.PublicURL(tt.locator); got != tt.want {
				t.Errorf("PublicURL(%q) = %q, want %q", tt.locator, got, tt.want)
			}
		})
	}
}

func TestS3AudioURLPrefersPublicBase(t *testing.T) {
	s := &S3Store{publicURL: "https://cdn.example.com"}
	got, err := s.AudioURL("sessions/abc/segments/1/morgan_1.mp3", 15*time.Minute)
	if err != nil {
		t.Fatalf("AudioURL: %v", err)
	}
	want := "https://cdn.example.com/sessions/abc/segments/1/morgan_1.mp3"
	if got != want {
		t.Errorf("AudioURL = %q, want %q", got, want)
	}
}
