package testutil

import (
	"image"
	"image/color"

	"github.com/MeKo-Tech/comicocr/internal/utils"
)

// Scene is a synthetic comic panel together with the tokens a scan is
// expected to produce when read with InkDetector and LabelRecognizer.
type Scene struct {
	Name        string
	Description string
	Image       *image.NRGBA
	Labels      map[color.RGBA]string
	Reach       int // InkDetector reach needed to read the scene
	Expected    []string
}

// Detector returns an InkDetector suited to the scene.
func (s Scene) Detector() *InkDetector {
	return &InkDetector{Reach: s.Reach}
}

// Recognizer returns a LabelRecognizer for the scene's ink colors.
func (s Scene) Recognizer() *LabelRecognizer {
	return &LabelRecognizer{Labels: s.Labels}
}

// HelloScene is a single high-contrast word centered on a white panel.
func HelloScene() Scene {
	return Scene{
		Name:        "hello",
		Description: "single centered word",
		Image:       RenderText(TextImageOptions{Width: 320, Height: 160, Text: "HELLO", Scale: 3}),
		Labels:      map[color.RGBA]string{InkBlack: "HELLO"},
		Reach:       10,
		Expected:    []string{"hello"},
	}
}

// BlankScene is an all-white panel.
func BlankScene() Scene {
	return Scene{
		Name:        "blank",
		Description: "no ink at all",
		Image:       NewCanvas(320, 160),
		Labels:      map[color.RGBA]string{},
		Expected:    nil,
	}
}

// TwoBlocksScene holds two text blocks far apart.
func TwoBlocksScene() Scene {
	img := NewCanvas(320, 192)
	FillRect(img, utils.NewRect(16, 16, 112, 48), InkRed)
	FillRect(img, utils.NewRect(192, 128, 300, 168), InkBlue)
	return Scene{
		Name:        "two-blocks",
		Description: "two blocks well beyond the merge distance",
		Image:       img,
		Labels:      map[color.RGBA]string{InkRed: "BOOM", InkBlue: "POW"},
		Expected:    []string{"boom", "pow"},
	}
}

// TwoLinesScene holds two text lines separated by a 3 px gap.
func TwoLinesScene() Scene {
	img := NewCanvas(320, 160)
	FillRect(img, utils.NewRect(40, 40, 260, 56), InkRed)
	FillRect(img, utils.NewRect(40, 59, 240, 75), InkBlue)
	return Scene{
		Name:        "two-lines",
		Description: "two lines 3 px apart read as one block",
		Image:       img,
		Labels:      map[color.RGBA]string{InkRed: "WHERE ARE", InkBlue: "YOU"},
		Expected:    []string{"where are you"},
	}
}

// Scenes returns every built-in scene.
func Scenes() []Scene {
	return []Scene{HelloScene(), BlankScene(), TwoBlocksScene(), TwoLinesScene()}
}

// SceneByName returns the named scene.
func SceneByName(name string) (Scene, bool) {
	for _, s := range Scenes() {
		if s.Name == name {
			return s, true
		}
	}
	return Scene{}, false
}
