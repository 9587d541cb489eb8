// Package videostore keeps the client's list of uploaded and processed
// videos. The list is only ever replaced as a whole.
package videostore

import (
	"sync"

	"github.com/vsslab/vss/internal/objecturl"
)

// File is a local file the user picked for upload.
type File struct {
	Name string
	Path string
	Size int64
}

type Video struct {
	ID         string
	Title      string
	OriginURL  string
	DisplayURL string
	ObjectURL  string
	Date       string
	File       *File
	Summary    string

	VIAVideoID string
	FileSize   int64
	Duration   float64
}

// URL is the address a player should use for the video.
func (v Video) URL() string {
	switch {
	case v.DisplayURL != "":
		return v.DisplayURL
	case v.ObjectURL != "":
		return v.ObjectURL
	default:
		return v.OriginURL
	}
}

type Store struct {
	urls *objecturl.Registry

	// writeMu orders whole-list replacements; mu guards the fields.
	writeMu sync.Mutex

	mu        sync.Mutex
	videos    []Video
	version   uint64
	listeners []func([]Video)
}

func New(urls *objecturl.Registry) *Store {
	return &Store{urls: urls, videos: []Video{}}
}

// SetVideos replaces the whole list. Object URLs held by the previous list
// and not carried over are revoked.
func (s *Store) SetVideos(records []Video) {
	s.writeMu.Lock()
	listeners, next := s.replace(records)
	s.writeMu.Unlock()
	s.notify(listeners, next)
}

// Update replaces the list with fn applied to a copy of the current one.
// No other replacement can land between the read and the write, so
// concurrent read-modify-write callers do not lose each other's changes.
func (s *Store) Update(fn func([]Video) []Video) {
	s.writeMu.Lock()
	listeners, next := s.replace(fn(s.Videos()))
	s.writeMu.Unlock()
	s.notify(listeners, next)
}

func (s *Store) replace(records []Video) ([]func([]Video), []Video) {
	next := make([]Video, len(records))
	keep := make(map[string]struct{}, len(records))
	for i, rec := range records {
		next[i] = s.normalize(rec)
		if next[i].ObjectURL != "" {
			keep[next[i].ObjectURL] = struct{}{}
		}
	}

	s.mu.Lock()
	for _, v := range s.videos {
		if v.ObjectURL == "" {
			continue
		}
		if _, ok := keep[v.ObjectURL]; !ok {
			s.urls.Revoke(v.ObjectURL)
		}
	}
	s.videos = next
	s.version++
	listeners := append([]func([]Video){}, s.listeners...)
	s.mu.Unlock()

	return listeners, next
}

// ClearVideos empties the list and revokes every object URL it held.
func (s *Store) ClearVideos() {
	s.SetVideos(nil)
}

func (s *Store) normalize(v Video) Video {
	if v.File != nil {
		f := *v.File
		v.File = &f
		if v.Title == "" {
			v.Title = f.Name
		}
		if v.FileSize == 0 {
			v.FileSize = f.Size
		}
		if v.ObjectURL == "" {
			v.ObjectURL = s.urls.Create(f.Path)
		}
	}
	return v
}

// Videos returns a copy of the current list.
func (s *Store) Videos() []Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyVideos(s.videos)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.videos)
}

// Version increases on every SetVideos or ClearVideos.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// OnChange registers fn to receive each new list.
func (s *Store) OnChange(fn func([]Video)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(listeners []func([]Video), videos []Video) {
	for _, fn := range listeners {
		fn(copyVideos(videos))
	}
}

func copyVideos(in []Video) []Video {
	out := make([]Video, len(in))
	for i, v := range in {
		if v.File != nil {
			f := *v.File
			v.File = &f
		}
		out[i] = v
	}
	return out
}
