package services

import (
	"mediagate/internal/core/domain"
)

// SelectFormat picks exactly one descriptor out of info.Formats. With a
// requested id the match must be exact. Without one the policy is
// deterministic: best combined audio+video stream, else best video-only
// stream, else the first format in extraction order. Ranking is by height,
// then approximate size, then original order (stable).
func SelectFormat(info *domain.MediaInfo, requestedID string) (*domain.FormatDescriptor, error) {
	if requestedID != "" {
		for i := range info.Formats {
			if info.Formats[i].ID == requestedID {
				return &info.Formats[i], nil
			}
		}
		return nil, domain.Errorf(domain.KindFormatNotFound, "format %q not available", requestedID)
	}

	if len(info.Formats) == 0 {
		return nil, domain.Errorf(domain.KindFormatNotFound, "no formats extracted")
	}

	if best := bestOf(info.Formats, func(f *domain.FormatDescriptor) bool {
		return f.Kind == domain.MediaVideo && !f.AudioOnly && !f.VideoOnly
	}); best != nil {
		return best, nil
	}
	if best := bestOf(info.Formats, func(f *domain.FormatDescriptor) bool {
		return f.VideoOnly
	}); best != nil {
		return best, nil
	}
	return &info.Formats[0], nil
}

// SelectPhoto finds the first photo descriptor.
func SelectPhoto(info *domain.MediaInfo) (*domain.FormatDescriptor, error) {
	for i := range info.Formats {
		if info.Formats[i].Kind == domain.MediaPhoto {
			return &info.Formats[i], nil
		}
	}
	return nil, domain.Errorf(domain.KindFormatNotFound, "no photo asset for this URL")
}

// bestOf keeps the first candidate that no later candidate strictly beats,
// so ties resolve to extraction order.
func bestOf(formats []domain.FormatDescriptor, match func(*domain.FormatDescriptor) bool) *domain.FormatDescriptor {
	var best *domain.FormatDescriptor
	for i := range formats {
		f := &formats[i]
		if !match(f) {
			continue
		}
		if best == nil || better(f, best) {
			best = f
		}
	}
	return best
}

func better(a, b *domain.FormatDescriptor) bool {
	if a.Height != b.Height {
		return a.Height > b.Height
	}
	return a.Filesize > b.Filesize
}
