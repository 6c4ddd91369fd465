// Package media discovers object-store references scattered across memorial
// records and maps public URLs back to storage keys.
//
// Both halves are pure: Collect walks a profile and its dependent records
// and returns the deduplicated URL set; Extractor turns a URL into a
// deletable key or reports that the URL does not belong to our store. The
// cleanup pipeline in pkg/gc composes them with the object store.
package media

import (
	"strings"

	"github.com/everkeep/everkeep/pkg/memorial"
)

// Collect returns every media URL referenced by a profile, its family
// members, and its memories, deduplicated.
//
// Single-value fields (primary image, banner, video, QR code), the gallery
// list, each member's image and video, and each memory's photo all
// contribute. One walk serves both profile variants: the individual variant
// simply has no members. Blank entries are dropped silently, since they
// represent already-absent media, not errors. Order of the result is not
// significant.
func Collect(profile *memorial.MemorialProfile, memories []memorial.Memory) []string {
	seen := make(map[string]struct{})
	var urls []string

	add := func(url string) {
		url = strings.TrimSpace(url)
		if url == "" {
			return
		}
		if _, dup := seen[url]; dup {
			return
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}

	if profile != nil {
		add(profile.PrimaryImageURL)
		add(profile.BannerImageURL)
		add(profile.VideoURL)
		add(profile.QRImageURL)
		for _, url := range profile.GalleryImageURLs {
			add(url)
		}
		for _, member := range profile.Members {
			add(member.ImageURL)
			add(member.VideoURL)
		}
	}

	for _, memory := range memories {
		add(memory.PhotoURL)
	}

	return urls
}
