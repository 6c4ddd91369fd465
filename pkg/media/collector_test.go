package media

import (
	"testing"

	"github.com/everkeep/everkeep/pkg/memorial"
	"github.com/stretchr/testify/assert"
)

func TestCollect_DeduplicatesAndDropsBlanks(t *testing.T) {
	profile := &memorial.MemorialProfile{
		Kind:             memorial.ProfileKindIndividual,
		PrimaryImageURL:  "https://pub-xyz.r2.dev/u1/profile/a.jpg",
		BannerImageURL:   "", // absent media, dropped silently
		GalleryImageURLs: []string{"https://pub-xyz.r2.dev/u1/gallery/a.jpg", "https://pub-xyz.r2.dev/u1/gallery/b.jpg", "https://pub-xyz.r2.dev/u1/gallery/a.jpg"},
	}

	urls := Collect(profile, nil)

	assert.ElementsMatch(t, []string{
		"https://pub-xyz.r2.dev/u1/profile/a.jpg",
		"https://pub-xyz.r2.dev/u1/gallery/a.jpg",
		"https://pub-xyz.r2.dev/u1/gallery/b.jpg",
	}, urls)
}

func TestCollect_FamilyVariantGathersMemberMedia(t *testing.T) {
	profile := &memorial.MemorialProfile{
		Kind:            memorial.ProfileKindFamily,
		PrimaryImageURL: "https://pub-xyz.r2.dev/u1/profile/cover.jpg",
		VideoURL:        "https://pub-xyz.r2.dev/u1/video/family.mp4",
		QRImageURL:      "https://pub-xyz.r2.dev/u1/qr/code.png",
		Members: []memorial.FamilyMember{
			{Name: "A", ImageURL: "https://pub-xyz.r2.dev/u1/members/a.jpg", VideoURL: "https://pub-xyz.r2.dev/u1/members/a.mp4"},
			{Name: "B", ImageURL: "https://pub-xyz.r2.dev/u1/members/b.jpg"},
			{Name: "C"}, // no media at all
		},
	}
	memories := []memorial.Memory{
		{PhotoURL: "https://pub-xyz.r2.dev/u1/memories/m1.jpg"},
		{PhotoURL: ""},
		{PhotoURL: "https://pub-xyz.r2.dev/u1/memories/m1.jpg"}, // duplicate across records
	}

	urls := Collect(profile, memories)

	assert.ElementsMatch(t, []string{
		"https://pub-xyz.r2.dev/u1/profile/cover.jpg",
		"https://pub-xyz.r2.dev/u1/video/family.mp4",
		"https://pub-xyz.r2.dev/u1/qr/code.png",
		"https://pub-xyz.r2.dev/u1/members/a.jpg",
		"https://pub-xyz.r2.dev/u1/members/a.mp4",
		"https://pub-xyz.r2.dev/u1/members/b.jpg",
		"https://pub-xyz.r2.dev/u1/memories/m1.jpg",
	}, urls)
}

func TestCollect_Deterministic(t *testing.T) {
	profile := &memorial.MemorialProfile{
		PrimaryImageURL:  "https://pub-xyz.r2.dev/u1/profile/a.jpg",
		GalleryImageURLs: []string{"https://pub-xyz.r2.dev/u1/gallery/b.jpg"},
	}

	first := Collect(profile, nil)
	second := Collect(profile, nil)

	assert.Equal(t, first, second)
}

func TestCollect_NilProfile(t *testing.T) {
	urls := Collect(nil, []memorial.Memory{{PhotoURL: "https://pub-xyz.r2.dev/m.jpg"}})
	assert.Equal(t, []string{"https://pub-xyz.r2.dev/m.jpg"}, urls)
}
