package youtube

import "testing"

func TestCanHandle(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", true},
		{"https://m.youtube.com/watch?v=abc", true},
		{"https://music.youtube.com/watch?v=abc", true},
		{"https://www.tiktok.com/@user/video/1", false},
		{"https://youtube.com.evil.example/watch", false},
		{"::not-a-url::", false},
	}
	e := &Extractor{}
	for _, tt := range tests {
		if got := e.CanHandle(tt.url); got != tt.want {
			t.Errorf("CanHandle(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestMimeToExt(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{`video/mp4; codecs="avc1.640028, mp4a.40.2"`, "mp4"},
		{`video/webm; codecs="vp9"`, "webm"},
		{`audio/mp4; codecs="mp4a.40.2"`, "mp4"},
		{"", "mp4"},
	}
	for _, tt := range tests {
		if got := mimeToExt(tt.mime); got != tt.want {
			t.Errorf("mimeToExt(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestExtFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://i.ytimg.com/vi/x/maxresdefault.jpg", "jpg"},
		{"https://i.ytimg.com/vi/x/hq720.webp?sqp=abc", "webp"},
		{"https://example.com/noext", "jpg"},
	}
	for _, tt := range tests {
		if got := extFromURL(tt.url, "jpg"); got != tt.want {
			t.Errorf("extFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
