//go:build js
// +build js

package dom

import (
	"context"
	"fmt"

	"github.com/gopherjs/gopherjs/js"

	"github.com/simukka/sound-healing/audio"
	"github.com/simukka/sound-healing/catalog"
)

// ConfigGlobal is the window property holding the page's catalog.
const ConfigGlobal = "AUDIO_CONFIG"

// CatalogFromGlobal reads the catalog the page defined as a global object.
func CatalogFromGlobal(name string) (*catalog.Catalog, error) {
	cfg := js.Global.Get(name)
	if !Present(cfg) {
		return nil, fmt.Errorf("window.%s: %w", name, audio.ErrNoCategories)
	}
	text := js.Global.Get("JSON").Call("stringify", cfg).String()
	return catalog.ParseJSON([]byte(text))
}

// FetchCatalog loads the catalog from the server.
func FetchCatalog(ctx context.Context, url string) (*catalog.Catalog, error) {
	type result struct {
		cat *catalog.Catalog
		err error
	}
	done := make(chan result, 1)

	xhr := js.Global.Get("XMLHttpRequest").New()
	xhr.Call("open", "GET", url, true)
	xhr.Set("onload", func() {
		if status := xhr.Get("status").Int(); status != 200 {
			done <- result{err: fmt.Errorf("GET %s: status %d", url, status)}
			return
		}
		cat, err := catalog.ParseJSON([]byte(xhr.Get("responseText").String()))
		done <- result{cat: cat, err: err}
	})
	xhr.Set("onerror", func() {
		done <- result{err: fmt.Errorf("GET %s: network error", url)}
	})
	xhr.Call("send")

	select {
	case r := <-done:
		return r.cat, r.err
	case <-ctx.Done():
		xhr.Call("abort")
		return nil, ctx.Err()
	}
}
