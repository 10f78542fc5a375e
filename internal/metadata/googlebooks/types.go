package googlebooks

import "encoding/json"

type rawSearch struct {
	TotalItems int               `json:"totalItems"`
	Items      []json.RawMessage `json:"items"`
}

type rawVolume struct {
	VolumeInfo struct {
		Title      string        `json:"title"`
		Authors    []string      `json:"authors"`
		ImageLinks rawImageLinks `json:"imageLinks"`
	} `json:"volumeInfo"`
}

type rawImageLinks struct {
	Thumbnail      string `json:"thumbnail"`
	SmallThumbnail string `json:"smallThumbnail"`
}

// best prefers the larger thumbnail.
func (l rawImageLinks) best() string {
	if l.Thumbnail != "" {
		return l.Thumbnail
	}
	return l.SmallThumbnail
}
