//go:build js
// +build js

// Package dom binds the playback core to the browser: HTML audio elements,
// localStorage, the AUDIO_CONFIG global, the catalog feed and page
// lifecycle events.
package dom

import (
	"errors"

	"github.com/gopherjs/gopherjs/js"
)

// Present reports whether a JS value is neither null nor undefined.
func Present(o *js.Object) bool {
	return o != nil && o != js.Undefined
}

// ByID returns the element with the given id, or nil.
func ByID(id string) *js.Object {
	el := js.Global.Get("document").Call("getElementById", id)
	if !Present(el) {
		return nil
	}
	return el
}

// catch converts a thrown JS exception into an error.
func catch(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if jsErr, ok := r.(*js.Error); ok {
		*err = errors.New(jsErr.Error())
		return
	}
	panic(r)
}
