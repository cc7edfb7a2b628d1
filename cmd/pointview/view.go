package main

import (
	"fmt"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/Faultbox/pointview/internal/engine/renderer"
	"github.com/Faultbox/pointview/internal/viewer"
)

const (
	panelFlags = imgui.WindowFlagsNoMove | imgui.WindowFlagsNoResize |
		imgui.WindowFlagsNoCollapse | imgui.WindowFlagsNoTitleBar |
		imgui.WindowFlagsNoScrollbar

	// errorMessage is what users see for any failed load.
	errorMessage = "Model can not be shown"

	snapshotMsgDuration = 3 * time.Second
)

// render is called each frame to draw the UI.
func (app *App) render() {
	// Capture at the start of the frame so the surface holds the last full render
	if app.snapshotRequested {
		app.snapshotRequested = false
		app.takeSnapshot()
	}

	// Completions and due render frames
	app.session.Tick()

	if imgui.IsKeyChordPressed(imgui.KeyChord(imgui.KeyF12)) {
		app.snapshotRequested = true
	}

	app.renderMenuBar()

	viewport := imgui.MainViewport()
	imgui.SetNextWindowPos(viewport.WorkPos())
	imgui.SetNextWindowSize(viewport.WorkSize())
	if imgui.BeginV("Viewer", nil, panelFlags) {
		if !app.session.Mounted() {
			app.renderEmpty()
		} else {
			switch app.session.State() {
			case viewer.StateLoading:
				app.renderLoading()
			case viewer.StateReady:
				app.renderReady()
			case viewer.StateError:
				app.renderError()
			}
		}

		if app.snapshotMsg != "" && time.Since(app.snapshotMsgTime) < snapshotMsgDuration {
			imgui.Spacing()
			centerText(app.snapshotMsg, true)
		}
	}
	imgui.End()
}

func (app *App) renderMenuBar() {
	if !imgui.BeginMainMenuBar() {
		return
	}
	if imgui.BeginMenu("File") {
		if imgui.MenuItemBool("Open Model...") {
			app.openFileDialog()
		}
		if imgui.MenuItemBool("Save Snapshot") {
			app.snapshotRequested = true
		}
		if imgui.MenuItemBool("Save Settings") {
			app.saveSettings()
		}
		imgui.Separator()
		if imgui.MenuItemBool("Exit") {
			app.backend.SetShouldClose(true)
		}
		imgui.EndMenu()
	}
	imgui.EndMainMenuBar()
}

func (app *App) renderEmpty() {
	centerText("No model loaded", true)
	centerText("File > Open Model... or pass a .ply path", true)
}

// renderLoading shows the preloader: progress plus the preview image if any.
func (app *App) renderLoading() {
	ctrl := app.session.Controller()
	app.syncPreview(ctrl.PreviewImage())

	if tex := app.preview; tex != nil {
		w, h := fitSize(float32(tex.width), float32(tex.height), imgui.ContentRegionAvail().X, float32(app.cfg.Render.Height))
		startX := imgui.CursorPosX()
		avail := imgui.ContentRegionAvail()
		if w < avail.X {
			imgui.SetCursorPosX(startX + (avail.X-w)/2)
		}
		imgui.ImageWithBgV(
			tex.texture.ID,
			imgui.NewVec2(w, h),
			imgui.NewVec2(0, 0),
			imgui.NewVec2(1, 1),
			imgui.NewVec4(0, 0, 0, 1),
			imgui.NewVec4(1, 1, 1, 0.6), // Dimmed while loading
		)
	}

	imgui.Spacing()
	p := ctrl.Progress()
	frac, overlay := progressFraction(p)
	imgui.ProgressBarV(frac, imgui.NewVec2(-1, 20), overlay)
}

// renderReady draws the render surface and routes pointer input to it.
func (app *App) renderReady() {
	surface, ok := app.session.Surface().(*renderer.Surface)
	if !ok {
		return
	}

	sw, sh := surface.Size()
	avail := imgui.ContentRegionAvail()
	w, h := fitSize(float32(sw), float32(sh), avail.X, avail.Y)
	startX := imgui.CursorPosX()
	if w < avail.X {
		imgui.SetCursorPosX(startX + (avail.X-w)/2)
	}

	texRef := imgui.NewTextureRefTextureID(imgui.TextureID(surface.TextureID()))
	imgui.ImageWithBgV(
		*texRef,
		imgui.NewVec2(w, h),
		imgui.NewVec2(0, 1), // UV flipped
		imgui.NewVec2(1, 0),
		imgui.NewVec4(0, 0, 0, 1),
		imgui.NewVec4(1, 1, 1, 1),
	)

	if imgui.IsItemHovered() {
		mousePos := imgui.MousePos()
		if imgui.IsMouseDragging(imgui.MouseButtonLeft) {
			surface.Drag(mousePos.X-app.lastMousePos.X, mousePos.Y-app.lastMousePos.Y)
		}
		app.lastMousePos = mousePos

		if wheel := imgui.CurrentIO().MouseWheel(); wheel != 0 {
			surface.Wheel(wheel)
		}
	}
}

func (app *App) renderError() {
	imgui.Spacing()
	msgW := imgui.CalcTextSize(errorMessage).X
	avail := imgui.ContentRegionAvail()
	if msgW < avail.X {
		imgui.SetCursorPosX(imgui.CursorPosX() + (avail.X-msgW)/2)
	}
	imgui.TextColored(imgui.NewVec4(1, 0.3, 0.3, 1), errorMessage)

	if err := app.session.Controller().Err(); err != nil {
		centerText(err.Error(), true)
	}
}

// centerText draws text horizontally centered in the current window.
func centerText(text string, disabled bool) {
	w := imgui.CalcTextSize(text).X
	avail := imgui.ContentRegionAvail()
	if w < avail.X {
		imgui.SetCursorPosX(imgui.CursorPosX() + (avail.X-w)/2)
	}
	if disabled {
		imgui.TextDisabled(text)
		return
	}
	imgui.Text(text)
}

// fitSize scales w x h to fit inside maxW x maxH, keeping the aspect ratio.
// It never scales up.
func fitSize(w, h, maxW, maxH float32) (float32, float32) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := float32(1)
	if maxW > 0 && w*scale > maxW {
		scale = maxW / w
	}
	if maxH > 0 && h*scale > maxH {
		scale = maxH / h
	}
	return w * scale, h * scale
}

// progressFraction turns load progress into a bar fraction and overlay.
// Unknown totals show the byte count only.
func progressFraction(p viewer.Progress) (float32, string) {
	if p.Total <= 0 {
		return 0, fmt.Sprintf("Loading... %s", formatBytes(p.Loaded))
	}
	frac := float32(p.Loaded) / float32(p.Total)
	if frac > 1 {
		frac = 1
	}
	return frac, fmt.Sprintf("%s / %s", formatBytes(p.Loaded), formatBytes(p.Total))
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
