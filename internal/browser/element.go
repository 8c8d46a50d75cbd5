package browser

import (
	"context"
	"fmt"

	"github.com/aleister1102/designdiff/internal/page"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Visible(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

func (e *rodElement) Screenshot(ctx context.Context) ([]byte, error) {
	return e.el.Context(ctx).Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
}

func (e *rodElement) BoundingBox(ctx context.Context) (page.Box, error) {
	shape, err := e.el.Context(ctx).Shape()
	if err != nil {
		return page.Box{}, err
	}
	box := shape.Box()
	if box == nil {
		return page.Box{}, fmt.Errorf("element has no layout box")
	}
	return page.Box{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (e *rodElement) ComputedStyle(ctx context.Context, property string) (string, error) {
	res, err := e.el.Context(ctx).Eval(`(prop) => getComputedStyle(this).getPropertyValue(prop)`, property)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *rodElement) HTML(ctx context.Context) (string, error) {
	return e.el.Context(ctx).HTML()
}
