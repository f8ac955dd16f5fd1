//go:build js
// +build js

package ui

import (
	"github.com/gopherjs/gopherjs/js"

	"github.com/simukka/sound-healing/dom"
)

// How long an error toast stays on screen, in milliseconds.
const toastMillis = 3000

// on attaches a DOM event listener when el exists.
func on(el *js.Object, event string, fn func(ev *js.Object)) {
	if el == nil {
		return
	}
	el.Call("addEventListener", event, fn)
}

// closest walks up from the event target to the nearest match of selector.
func closest(ev *js.Object, selector string) *js.Object {
	target := ev.Get("target")
	if !dom.Present(target) || !dom.Present(target.Get("closest")) {
		return nil
	}
	el := target.Call("closest", selector)
	if !dom.Present(el) {
		return nil
	}
	return el
}

func data(el *js.Object, key string) string {
	v := el.Get("dataset").Get(key)
	if !dom.Present(v) {
		return ""
	}
	return v.String()
}

func setText(el *js.Object, text string) {
	if el != nil {
		el.Set("textContent", text)
	}
}

func setHTML(el *js.Object, html string) {
	if el != nil {
		el.Set("innerHTML", html)
	}
}

func toggleClass(el *js.Object, class string, on bool) {
	if el != nil {
		el.Get("classList").Call("toggle", class, on)
	}
}

func setDisplay(el *js.Object, display string) {
	if el != nil {
		el.Get("style").Set("display", display)
	}
}

func setCursor(cursor string) {
	js.Global.Get("document").Get("body").Get("style").Set("cursor", cursor)
}

// showError pops a transient toast at the top of the page.
func showError(msg string) {
	if msg == "" {
		return
	}
	doc := js.Global.Get("document")
	toast := doc.Call("createElement", "div")
	toast.Set("className", "error-toast")
	toast.Set("textContent", msg)
	doc.Get("body").Call("appendChild", toast)
	js.Global.Call("setTimeout", func() {
		toast.Call("remove")
	}, toastMillis)
}
