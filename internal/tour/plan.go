package tour

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

const (
	DefaultTargetDuration = 45.0
	DefaultTransition     = 1.2
)

// SceneGroup is the set of images that share a classification label.
type SceneGroup struct {
	Label  string
	Images []Image
}

func (g SceneGroup) FileNames() []string {
	names := make([]string, len(g.Images))
	for i, img := range g.Images {
		names[i] = img.Name
	}
	return names
}

// Groups keeps scene groups in the order their label was first seen.
type Groups struct {
	order   []string
	byLabel map[string]*SceneGroup
}

func NewGroups() *Groups {
	return &Groups{byLabel: make(map[string]*SceneGroup)}
}

func (g *Groups) Add(label string, img Image) {
	group, ok := g.byLabel[label]
	if !ok {
		group = &SceneGroup{Label: label}
		g.byLabel[label] = group
		g.order = append(g.order, label)
	}
	group.Images = append(group.Images, img)
}

func (g *Groups) Len() int {
	return len(g.order)
}

func (g *Groups) List() []SceneGroup {
	list := make([]SceneGroup, 0, len(g.order))
	for _, label := range g.order {
		list = append(list, *g.byLabel[label])
	}
	return list
}

func (g *Groups) Labels() []string {
	return append([]string(nil), g.order...)
}

var labelReplacer = strings.NewReplacer(`"`, "", "'", "", ".", "")

// NormalizeLabel turns a model answer into a grouping key.
func NormalizeLabel(answer string) string {
	return labelReplacer.Replace(strings.ToLower(strings.TrimSpace(answer)))
}

// fileLabel makes a label safe to embed in a file name.
func fileLabel(label string) string {
	var b strings.Builder
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ClipDuration is the per-clip length that makes n clips overlapping by
// transition add up to total.
func ClipDuration(n int, total, transition float64) (float64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("scene count must be positive, got %d", n)
	}
	return (total + float64(n-1)*transition) / float64(n), nil
}

// OrderClips moves exterior and lobby clips to the front, keeping the
// relative order of everything else. Only the file name is matched, so a
// directory named after a lobby does not reorder anything.
func OrderClips(paths []string) []string {
	ordered := append([]string(nil), paths...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return isEntrance(ordered[i]) && !isEntrance(ordered[j])
	})
	return ordered
}

func isEntrance(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	return strings.Contains(name, "exterior") || strings.Contains(name, "lobby")
}

func ClipFileName(propertyCode, label string) string {
	return fmt.Sprintf("%s_%s.mp4", propertyCode, fileLabel(label))
}

// ClipNames hands out clip file names that stay distinct within one run.
// Labels that sanitize to the same name get a numeric suffix.
type ClipNames struct {
	propertyCode string
	used         map[string]bool
}

func NewClipNames(propertyCode string) *ClipNames {
	return &ClipNames{propertyCode: propertyCode, used: make(map[string]bool)}
}

func (c *ClipNames) Next(label string) string {
	name := ClipFileName(c.propertyCode, label)
	base := strings.TrimSuffix(name, ".mp4")
	for i := 2; c.used[name]; i++ {
		name = fmt.Sprintf("%s_%d.mp4", base, i)
	}
	c.used[name] = true
	return name
}

func FinalFileName(propertyCode string) string {
	return fmt.Sprintf("final_property_tour_%s.mp4", propertyCode)
}
