package main

import (
	"github.com/AllenDang/cimgui-go/backend"
	"go.uber.org/zap"

	"github.com/Faultbox/pointview/internal/engine/texture"
)

// previewMaxSide bounds the preview texture so large photos stay cheap.
const previewMaxSide = 1024

// previewTexture is the preloader image uploaded to the GPU.
type previewTexture struct {
	texture *backend.Texture
	width   int
	height  int
}

// syncPreview keeps the preview texture in step with the controller's
// current preview. The preview path changes once when orientation
// correction reports back. Remote previews show only after correction has
// cached a local copy.
func (app *App) syncPreview(ref string) {
	if ref == app.previewPath {
		return
	}
	app.releasePreview()
	app.previewPath = ref
	if ref == "" {
		return
	}

	path, ok := texture.LocalPath(ref)
	if !ok {
		app.log.Debug("preview is not local, skipping", zap.String("preview", ref))
		return
	}

	rgba, err := texture.LoadImage(path, previewMaxSide)
	if err != nil {
		app.log.Warn("cannot load preview", zap.String("path", path), zap.Error(err))
		return
	}

	app.preview = &previewTexture{
		texture: backend.NewTextureFromRgba(rgba),
		width:   rgba.Bounds().Dx(),
		height:  rgba.Bounds().Dy(),
	}
}

func (app *App) releasePreview() {
	if app.preview != nil {
		app.preview.texture.Release()
		app.preview = nil
	}
	app.previewPath = ""
}
