//go:build js
// +build js

package dom

import (
	"context"
	"errors"
	"fmt"

	"github.com/gopherjs/gopherjs/js"

	"github.com/simukka/sound-healing/audio"
)

// Media error codes of HTMLMediaElement.error.
var mediaErrors = map[int]string{
	1: "aborted",
	2: "network error",
	3: "decode error",
	4: "source not supported",
}

// audioElement wraps an HTMLAudioElement.
type audioElement struct {
	obj   *js.Object
	ended func()
}

// Backend creates HTML audio elements.
type Backend struct {
	probe *js.Object // Detached element used for canPlayType
}

// NewBackend returns a backend for the current page.
func NewBackend() *Backend {
	return &Backend{probe: js.Global.Get("document").Call("createElement", "audio")}
}

func (b *Backend) NewElement() audio.Element {
	e := &audioElement{obj: js.Global.Get("Audio").New()}
	e.obj.Set("preload", "auto")
	e.obj.Call("addEventListener", "ended", func() {
		if fn := e.ended; fn != nil {
			go fn()
		}
	})
	return e
}

func (b *Backend) CanPlayType(mime string) bool {
	if !Present(b.probe) {
		return false
	}
	return b.probe.Call("canPlayType", mime).String() != ""
}

func (e *audioElement) Load(ctx context.Context, src string) error {
	result := make(chan error, 1)
	once := map[string]interface{}{"once": true}

	e.obj.Call("addEventListener", "canplaythrough", func() {
		select {
		case result <- nil:
		default:
		}
	}, once)
	e.obj.Call("addEventListener", "error", func() {
		err := errors.New("load failed")
		if me := e.obj.Get("error"); Present(me) {
			code := me.Get("code").Int()
			if name, ok := mediaErrors[code]; ok {
				err = fmt.Errorf("media error %d: %s", code, name)
			}
		}
		select {
		case result <- err:
		default:
		}
	}, once)

	e.obj.Set("src", src)
	e.obj.Call("load")

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *audioElement) Play(ctx context.Context) error {
	promise := e.obj.Call("play")
	if !Present(promise) || !Present(promise.Get("then")) {
		return nil
	}

	result := make(chan error, 1)
	promise.Call("then", func() {
		result <- nil
	}, func(reason *js.Object) {
		if Present(reason) && reason.Get("name").String() == "NotAllowedError" {
			result <- audio.ErrAutoplayBlocked
			return
		}
		msg := "play rejected"
		if Present(reason) && Present(reason.Get("message")) {
			msg = reason.Get("message").String()
		}
		result <- errors.New(msg)
	})

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *audioElement) Pause() {
	e.obj.Call("pause")
}

func (e *audioElement) Paused() bool {
	return e.obj.Get("paused").Bool()
}

func (e *audioElement) Volume() float64 {
	return e.obj.Get("volume").Float()
}

func (e *audioElement) SetVolume(v float64) {
	e.obj.Set("volume", v)
}

func (e *audioElement) CurrentTime() float64 {
	return e.obj.Get("currentTime").Float()
}

func (e *audioElement) SetCurrentTime(t float64) {
	e.obj.Set("currentTime", t)
}

func (e *audioElement) Duration() float64 {
	return e.obj.Get("duration").Float()
}

func (e *audioElement) OnEnded(fn func()) {
	e.ended = fn
}

// Release detaches the source so the browser can free the decoder.
func (e *audioElement) Release() {
	e.ended = nil
	e.obj.Call("pause")
	e.obj.Call("removeAttribute", "src")
	e.obj.Call("load")
}
