package services

import (
	"testing"

	"mediagate/internal/core/domain"
)

func fmtDesc(id string, kind domain.MediaKind, height int, size int64, audioOnly, videoOnly bool) domain.FormatDescriptor {
	return domain.FormatDescriptor{
		ID:        id,
		Kind:      kind,
		Container: "mp4",
		Height:    height,
		Filesize:  size,
		AudioOnly: audioOnly,
		VideoOnly: videoOnly,
	}
}

func TestSelectFormat_Default(t *testing.T) {
	tests := []struct {
		name    string
		formats []domain.FormatDescriptor
		wantID  string
	}{
		{
			name: "prefers combined audio+video over higher video-only",
			formats: []domain.FormatDescriptor{
				fmtDesc("vo-2160", domain.MediaVideo, 2160, 0, false, true),
				fmtDesc("av-720", domain.MediaVideo, 720, 0, false, false),
				fmtDesc("av-360", domain.MediaVideo, 360, 0, false, false),
			},
			wantID: "av-720",
		},
		{
			name: "falls back to best video-only when no combined stream",
			formats: []domain.FormatDescriptor{
				fmtDesc("audio", domain.MediaAudio, 0, 0, true, false),
				fmtDesc("vo-480", domain.MediaVideo, 480, 0, false, true),
				fmtDesc("vo-1080", domain.MediaVideo, 1080, 0, false, true),
			},
			wantID: "vo-1080",
		},
		{
			name: "breaks height tie by size",
			formats: []domain.FormatDescriptor{
				fmtDesc("small", domain.MediaVideo, 720, 1000, false, false),
				fmtDesc("large", domain.MediaVideo, 720, 9000, false, false),
			},
			wantID: "large",
		},
		{
			name: "full tie keeps extraction order",
			formats: []domain.FormatDescriptor{
				fmtDesc("first", domain.MediaVideo, 720, 500, false, false),
				fmtDesc("second", domain.MediaVideo, 720, 500, false, false),
			},
			wantID: "first",
		},
		{
			name: "single audio format is still selectable",
			formats: []domain.FormatDescriptor{
				fmtDesc("audio", domain.MediaAudio, 0, 0, true, false),
			},
			wantID: "audio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := &domain.MediaInfo{Formats: tt.formats}
			got, err := SelectFormat(info, "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("selected %q, want %q", got.ID, tt.wantID)
			}
		})
	}
}

func TestSelectFormat_NeverFabricates(t *testing.T) {
	info := &domain.MediaInfo{Formats: []domain.FormatDescriptor{
		fmtDesc("a", domain.MediaVideo, 360, 0, false, false),
		fmtDesc("b", domain.MediaVideo, 1080, 0, false, true),
		fmtDesc("c", domain.MediaAudio, 0, 0, true, false),
	}}
	got, err := SelectFormat(info, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, f := range info.Formats {
		if f.ID == got.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("selected format %q is not in the extracted set", got.ID)
	}
}

func TestSelectFormat_RequestedID(t *testing.T) {
	info := &domain.MediaInfo{Formats: []domain.FormatDescriptor{
		fmtDesc("22", domain.MediaVideo, 720, 0, false, false),
		fmtDesc("18", domain.MediaVideo, 360, 0, false, false),
	}}

	got, err := SelectFormat(info, "18")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "18" {
		t.Errorf("selected %q, want exact match 18", got.ID)
	}

	_, err = SelectFormat(info, "999")
	if err == nil {
		t.Fatal("expected error for unknown format id")
	}
	if kind := domain.KindOf(err); kind != domain.KindFormatNotFound {
		t.Errorf("kind = %s, want %s", kind, domain.KindFormatNotFound)
	}
}

func TestSelectFormat_Empty(t *testing.T) {
	_, err := SelectFormat(&domain.MediaInfo{}, "")
	if kind := domain.KindOf(err); kind != domain.KindFormatNotFound {
		t.Errorf("kind = %s, want %s", kind, domain.KindFormatNotFound)
	}
}

func TestSelectPhoto(t *testing.T) {
	info := &domain.MediaInfo{Formats: []domain.FormatDescriptor{
		fmtDesc("video", domain.MediaVideo, 720, 0, false, false),
		{ID: "photo", Kind: domain.MediaPhoto, Container: "jpg"},
	}}
	got, err := SelectPhoto(info)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "photo" {
		t.Errorf("selected %q, want photo", got.ID)
	}

	_, err = SelectPhoto(&domain.MediaInfo{Formats: []domain.FormatDescriptor{
		fmtDesc("video", domain.MediaVideo, 720, 0, false, false),
	}})
	if kind := domain.KindOf(err); kind != domain.KindFormatNotFound {
		t.Errorf("kind = %s, want %s", kind, domain.KindFormatNotFound)
	}
}
