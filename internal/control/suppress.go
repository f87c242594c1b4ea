package control

import (
	"net/url"
	"strings"
)

// isGalleryPage reports whether page is the gallery's own page: either a main
// landmark alongside an h1 reading exactly productName, or a location whose
// origin and path equal galleryURL.
func isGalleryPage(page Page, productName, galleryURL string) bool {
	if page == nil {
		return false
	}
	if productName != "" && page.HasElement("main") {
		for _, text := range page.TextsOf("h1") {
			if strings.TrimSpace(text) == productName {
				return true
			}
		}
	}
	return sameOriginAndPath(page.URL(), galleryURL)
}

func sameOriginAndPath(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	left, err := url.Parse(a)
	if err != nil {
		return false
	}
	right, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(left.Scheme, right.Scheme) &&
		strings.EqualFold(left.Host, right.Host) &&
		normalizePath(left.Path) == normalizePath(right.Path)
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
