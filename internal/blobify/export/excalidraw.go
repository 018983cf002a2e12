// Package export renders analysis results for tools outside the editor.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/blobify/blobify-lang/internal/blobify/domain"
	"github.com/blobify/blobify-lang/internal/blobify/graph"
)

// ExcalidrawBinding represents the connection of an arrow to an element.
type ExcalidrawBinding struct {
	ElementID string  `json:"elementId"`
	Focus     float64 `json:"focus"`
	Gap       float64 `json:"gap"`
}

// ExcalidrawElement represents a single element in the Excalidraw scene.
type ExcalidrawElement struct {
	Type            string             `json:"type"`
	Version         int                `json:"version"`
	VersionNonce    int                `json:"versionNonce"`
	IsDeleted       bool               `json:"isDeleted"`
	ID              string             `json:"id"`
	FillStyle       string             `json:"fillStyle"`
	StrokeWidth     int                `json:"strokeWidth"`
	StrokeStyle     string             `json:"strokeStyle"`
	Roughness       int                `json:"roughness"`
	Opacity         int                `json:"opacity"`
	Angle           int                `json:"angle"`
	X               float64            `json:"x"`
	Y               float64            `json:"y"`
	StrokeColor     string             `json:"strokeColor"`
	BackgroundColor string             `json:"backgroundColor"`
	Width           float64            `json:"width"`
	Height          float64            `json:"height"`
	Seed            int                `json:"seed"`
	GroupIds        []string           `json:"groupIds"`
	Roundness       any                `json:"roundness"`
	BoundElements   []any              `json:"boundElements"`
	Updated         int64              `json:"updated"`
	Link            any                `json:"link"`
	Locked          bool               `json:"locked"`
	Text            string             `json:"text,omitempty"`
	FontSize        int                `json:"fontSize,omitempty"`
	FontFamily      int                `json:"fontFamily,omitempty"`
	TextAlign       string             `json:"textAlign,omitempty"`
	VerticalAlign   string             `json:"verticalAlign,omitempty"`
	ContainerID     string             `json:"containerId,omitempty"`
	StartBinding    *ExcalidrawBinding `json:"startBinding,omitempty"`
	EndBinding      *ExcalidrawBinding `json:"endBinding,omitempty"`
	Points          [][]float64        `json:"points,omitempty"`
	StartArrowhead  string             `json:"startArrowhead,omitempty"`
	EndArrowhead    string             `json:"endArrowhead,omitempty"`
}

// ExcalidrawScene represents the full file format.
type ExcalidrawScene struct {
	Type     string              `json:"type"`
	Version  int                 `json:"version"`
	Source   string              `json:"source"`
	Elements []ExcalidrawElement `json:"elements"`
	AppState map[string]any      `json:"appState"`
	Files    map[string]any      `json:"files"`
}

// Layout constants
const (
	nodeWidth  = 200.0
	nodeHeight = 80.0
	paddingX   = 50.0
	rowGap     = 150.0
)

// palette colors rows by inheritance depth, cycling.
var palette = []struct{ bg, stroke string }{
	{"#e6f7ff", "#1890ff"},
	{"#f6ffed", "#52c41a"},
	{"#fff7e6", "#fa8c16"},
	{"#fff0f6", "#eb2f96"},
}

// elementID is stable across exports of the same graph so diagrams diff
// cleanly.
func elementID(kind, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("blobify:"+kind+":"+name)).String()
}

// BuildScene lays out the contexts of g in rows by inheritance depth, the
// reserved root on top, with one arrow from each context to each of its
// effective parents.
func BuildScene(g *graph.Graph) ExcalidrawScene {
	rows := make(map[int][]string)
	maxDepth := 0
	for _, name := range g.Names() {
		d := g.Depth(name)
		rows[d] = append(rows[d], name)
		maxDepth = max(maxDepth, d)
	}

	elements := []ExcalidrawElement{}
	rects := make(map[string]ExcalidrawElement)

	for depth := 0; depth <= maxDepth; depth++ {
		colors := palette[depth%len(palette)]
		y := float64(depth) * (nodeHeight + rowGap)
		for i, name := range rows[depth] {
			x := float64(i) * (nodeWidth + paddingX)
			rect := newElement("rectangle", elementID("context", name), x, y, nodeWidth, nodeHeight)
			rect.StrokeColor = colors.stroke
			rect.BackgroundColor = colors.bg
			rect.Roundness = map[string]int{"type": 3}
			elements = append(elements, rect)
			rects[name] = rect

			label := newElement("text", elementID("label", name), x+10, y+10, nodeWidth-20, nodeHeight-20)
			label.Text = labelFor(g, name)
			label.FontSize = 16
			label.FontFamily = 1
			label.TextAlign = "left"
			label.VerticalAlign = "top"
			elements = append(elements, label)
		}
	}

	for _, name := range g.Names() {
		source := rects[name]
		for _, parent := range g.EffectiveParents(name) {
			target, ok := rects[parent]
			if !ok {
				continue
			}
			startX := source.X + nodeWidth/2
			startY := source.Y
			endX := target.X + nodeWidth/2
			endY := target.Y + nodeHeight

			arrow := newElement("arrow", elementID("edge", name+"->"+parent), startX, startY, endX-startX, endY-startY)
			arrow.StrokeColor = "#000000"
			arrow.BackgroundColor = "transparent"
			arrow.Points = [][]float64{{0, 0}, {endX - startX, endY - startY}}
			arrow.StartBinding = &ExcalidrawBinding{ElementID: source.ID, Focus: 0.1, Gap: 1}
			arrow.EndBinding = &ExcalidrawBinding{ElementID: target.ID, Focus: 0.1, Gap: 1}
			arrow.EndArrowhead = "arrow"
			elements = append(elements, arrow)
		}
	}

	return ExcalidrawScene{
		Type:     "excalidraw",
		Version:  2,
		Source:   "blobify-lang",
		Elements: elements,
		AppState: map[string]any{"viewBackgroundColor": "#ffffff"},
		Files:    map[string]any{},
	}
}

func labelFor(g *graph.Graph, name string) string {
	c, _ := g.Get(name)
	if name == domain.ReservedContext {
		return name + "\n(implicit root)"
	}
	if len(c.Parents) == 0 {
		return fmt.Sprintf("%s\nline %d", name, c.Line+1)
	}
	return fmt.Sprintf("%s\nline %d: %s", name, c.Line+1, strings.Join(c.Parents, ", "))
}

func newElement(typ, id string, x, y, w, h float64) ExcalidrawElement {
	return ExcalidrawElement{
		Type:        typ,
		Version:     1,
		ID:          id,
		FillStyle:   "solid",
		StrokeWidth: 1,
		StrokeStyle: "solid",
		Roughness:   1,
		Opacity:     100,
		X:           x,
		Y:           y,
		StrokeColor: "#000000",
		Width:       w,
		Height:      h,
		Seed:        1,
		GroupIds:    []string{},
	}
}

// WriteExcalidraw encodes the scene of g to w.
func WriteExcalidraw(g *graph.Graph, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildScene(g))
}

// ExportExcalidraw writes an Excalidraw diagram of g to outputPath.
func ExportExcalidraw(g *graph.Graph, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := WriteExcalidraw(g, file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
