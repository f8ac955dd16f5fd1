//go:build js
// +build js

package dom

import (
	"errors"

	"github.com/gopherjs/gopherjs/js"
)

var errNoStorage = errors.New("localStorage unavailable")

// LocalStorage is window.localStorage. Pages where storage is disabled
// get a store that reads nothing and fails every write.
type LocalStorage struct {
	obj *js.Object
}

// NewLocalStorage returns the page's localStorage.
func NewLocalStorage() (s *LocalStorage) {
	s = &LocalStorage{}
	defer func() {
		// Accessing localStorage throws when cookies are blocked.
		if recover() != nil {
			s.obj = nil
		}
	}()
	if obj := js.Global.Get("localStorage"); Present(obj) {
		s.obj = obj
	}
	return s
}

func (s *LocalStorage) Get(key string) (string, bool) {
	if s.obj == nil {
		return "", false
	}
	v := s.obj.Call("getItem", key)
	if !Present(v) {
		return "", false
	}
	return v.String(), true
}

// Set stores value; quota errors are returned.
func (s *LocalStorage) Set(key, value string) (err error) {
	if s.obj == nil {
		return errNoStorage
	}
	defer catch(&err)
	s.obj.Call("setItem", key, value)
	return nil
}
