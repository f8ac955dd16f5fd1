//go:build js
// +build js

package dom

import "github.com/gopherjs/gopherjs/js"

// OnUnload runs fn when the page is being unloaded. fn runs synchronously
// inside the browser callback, where blocking on a channel or a held mutex
// panics, so it may only use non-blocking calls such as TryLock.
func OnUnload(fn func()) {
	js.Global.Call("addEventListener", "beforeunload", func() {
		fn()
	})
}

// OnVisibilityHidden runs fn on a goroutine whenever the page is hidden.
func OnVisibilityHidden(fn func()) {
	doc := js.Global.Get("document")
	doc.Call("addEventListener", "visibilitychange", func() {
		if doc.Get("hidden").Bool() {
			go fn()
		}
	})
}

// OnReady runs fn once the DOM is parsed.
func OnReady(fn func()) {
	doc := js.Global.Get("document")
	if doc.Get("readyState").String() != "loading" {
		go fn()
		return
	}
	doc.Call("addEventListener", "DOMContentLoaded", func() {
		go fn()
	})
}

// QueryParam returns a parameter of the page URL.
func QueryParam(name string) string {
	params := js.Global.Get("URLSearchParams").New(js.Global.Get("location").Get("search"))
	v := params.Call("get", name)
	if !Present(v) {
		return ""
	}
	return v.String()
}
