package tour

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var imageExtensions = map[string]bool{
	".webp": true,
	".jpg":  true,
	".jpeg": true,
}

type Image struct {
	Name string
	Path string
}

func (i Image) Read() ([]byte, error) {
	data, err := os.ReadFile(i.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", i.Name, err)
	}
	return data, nil
}

// ListImages returns the still images in dir sorted by name.
func ListImages(dir string) ([]Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	var images []Image
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		images = append(images, Image{
			Name: entry.Name(),
			Path: filepath.Join(dir, entry.Name()),
		})
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Name < images[j].Name
	})

	return images, nil
}
